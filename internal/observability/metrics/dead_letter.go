package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeadLetterBacklog reports how many dispatch jobs wait in the dead-letter
// list at scrape time. A failed lookup emits no sample.
type DeadLetterBacklog struct {
	desc    *prometheus.Desc
	pending func(context.Context) (int64, error)
	timeout time.Duration
}

func NewDeadLetterBacklog(pending func(context.Context) (int64, error)) *DeadLetterBacklog {
	return &DeadLetterBacklog{
		desc: prometheus.NewDesc(
			"academy_dispatch_dead_letters_pending",
			"Dispatch jobs waiting in the dead-letter list.",
			nil, nil,
		),
		pending: pending,
		timeout: 2 * time.Second,
	}
}

func (b *DeadLetterBacklog) Describe(ch chan<- *prometheus.Desc) {
	ch <- b.desc
}

func (b *DeadLetterBacklog) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	n, err := b.pending(ctx)
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(b.desc, prometheus.GaugeValue, float64(n))
}

// RegisterDeadLetterBacklog exposes the backlog on reg. A second registration
// keeps the first collector.
func RegisterDeadLetterBacklog(reg prometheus.Registerer, pending func(context.Context) (int64, error)) error {
	if err := reg.Register(NewDeadLetterBacklog(pending)); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}
