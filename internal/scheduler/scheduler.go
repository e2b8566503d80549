package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	certificatedomain "github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/internal/clock"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"github.com/smallbiznis/academy/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobArtifactBackfill = "artifact_backfill"

var ErrInvalidConfig = errors.New("scheduler: invalid config")

// ArtifactBackfiller renders certificate PDFs that were issued without one.
type ArtifactBackfiller interface {
	BackfillArtifacts(ctx context.Context, limit int) (int, error)
}

var _ ArtifactBackfiller = (certificatedomain.Service)(nil)

type Params struct {
	fx.In

	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Certificates certificatedomain.Service
	Metrics      *obsmetrics.Metrics `optional:"true"`
	Locker       *ratelimit.Locker   `optional:"true"`
	Config       Config              `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	backfiller ArtifactBackfiller
	metrics    *obsmetrics.Metrics
	locker     *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Certificates == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		backfiller: p.Certificates,
		metrics:    p.Metrics,
		locker:     p.Locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	release, ok := s.acquire(parent, name)
	if !ok {
		s.metrics.RecordSchedulerJob(parent, name, "skipped", 0)
		return nil
	}
	defer release()

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name, batchSize)
	s.logJobStart(ctx, run)

	err := fn(ctx)
	if err != nil {
		run.IncError()
	}
	s.logJobFinish(ctx, run)

	elapsed := s.clock.Now().Sub(run.startedAt)
	switch {
	case err == nil:
		s.metrics.RecordSchedulerJob(ctx, name, "ok", elapsed)
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		// Deadline is a soft timeout; the next tick picks up the rest.
		s.metrics.RecordSchedulerJob(ctx, name, "timeout", elapsed)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	default:
		s.metrics.RecordSchedulerJob(ctx, name, "error", elapsed)
		return fmt.Errorf("%s: %w", name, err)
	}
}

// acquire takes the cross-replica lease for a job. Without Redis, or when
// Redis errors, the job runs anyway; every job is safe to repeat.
func (s *Scheduler) acquire(ctx context.Context, name string) (func(), bool) {
	noop := func() {}
	if s.locker == nil {
		return noop, true
	}
	key := fmt.Sprintf("academy:scheduler:%s", name)
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		s.log.Warn("scheduler lock unavailable", zap.String("job", name), zap.Error(err))
		return noop, true
	}
	if !ok {
		s.log.Debug("scheduler job held by another replica", zap.String("job", name))
		return noop, false
	}
	return func() {
		if err := s.locker.Release(context.Background(), key, token); err != nil {
			s.log.Warn("scheduler lock release failed", zap.String("job", name), zap.Error(err))
		}
	}, true
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobArtifactBackfill, func(ctx context.Context) error {
			return s.runJob(ctx, JobArtifactBackfill, s.cfg.ArtifactBatchSize, s.cfg.JobTimeout, s.ArtifactBackfillJob)
		}},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ArtifactBackfillJob retries PDF generation for issued certificates that
// have no stored artifact yet.
func (s *Scheduler) ArtifactBackfillJob(ctx context.Context) error {
	done, err := s.backfiller.BackfillArtifacts(ctx, s.cfg.ArtifactBatchSize)
	jobRunFromContext(ctx).AddProcessed(done)
	return err
}
