package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"go.uber.org/zap"
)

// Job is a unit of best-effort work. Run must be safe to call once; failures
// are sent to the dead-letter sink rather than retried in process.
type Job struct {
	Kind    string
	Name    string
	Payload any
	Run     func(ctx context.Context) error
}

// Submitter accepts jobs without blocking the caller.
type Submitter interface {
	Submit(job Job) bool
}

type Config struct {
	QueueSize  int
	Workers    int
	JobTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Second
	}
	return c
}

// Dispatcher runs jobs on a fixed worker pool fed by a bounded queue.
type Dispatcher struct {
	cfg        Config
	log        *zap.Logger
	deadLetter DeadLetter
	metrics    *obsmetrics.Metrics

	queue chan Job
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func New(cfg Config, log *zap.Logger, deadLetter DeadLetter, metrics *obsmetrics.Metrics) *Dispatcher {
	cfg = cfg.withDefaults()
	if deadLetter == nil {
		deadLetter = NewLogDeadLetter(log)
	}
	return &Dispatcher{
		cfg:        cfg,
		log:        log.Named("dispatch"),
		deadLetter: deadLetter,
		metrics:    metrics,
		queue:      make(chan Job, cfg.QueueSize),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop closes the queue and waits for queued jobs to drain or ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues the job. A full or stopped queue dead-letters it instead.
func (d *Dispatcher) Submit(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.dead(job, errors.New("dispatcher stopped"), "stopped")
		return false
	}
	select {
	case d.queue <- job:
		return true
	default:
		d.dead(job, errors.New("queue full"), "queue_full")
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.queue {
		d.run(job)
	}
}

func (d *Dispatcher) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.JobTimeout)
	defer cancel()

	err := safeRun(ctx, job)
	if err == nil {
		return
	}
	d.log.Warn("dispatch job failed",
		zap.String("kind", job.Kind),
		zap.String("name", job.Name),
		zap.Error(err),
	)
	d.dead(job, err, "failed")
}

func (d *Dispatcher) dead(job Job, cause error, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d.metrics.RecordNotificationDropped(ctx, job.Kind, reason)
	letter := Letter{
		Kind:     job.Kind,
		Name:     job.Name,
		Reason:   reason,
		Error:    cause.Error(),
		Payload:  job.Payload,
		FailedAt: time.Now().UTC(),
	}
	if err := d.deadLetter.Push(ctx, letter); err != nil {
		d.log.Error("dead letter push failed",
			zap.String("kind", job.Kind),
			zap.String("name", job.Name),
			zap.Error(err),
		)
	}
}

func safeRun(ctx context.Context, job Job) (err error) {
	if job.Run == nil {
		return errors.New("job has no run func")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}

// Inline runs jobs synchronously on the caller's goroutine and swallows
// failures. Used by tests and by tools that have no worker pool.
type Inline struct {
	Log *zap.Logger
}

func (i Inline) Submit(job Job) bool {
	if err := safeRun(context.Background(), job); err != nil {
		if i.Log != nil {
			i.Log.Warn("inline job failed", zap.String("kind", job.Kind), zap.Error(err))
		}
		return false
	}
	return true
}
