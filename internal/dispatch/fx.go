package dispatch

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/academy/internal/config"
	obsmetrics "github.com/smallbiznis/academy/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("dispatch",
	fx.Provide(provideDeadLetter),
	fx.Provide(provideDispatcher),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	Log       *zap.Logger
	Metrics   *obsmetrics.Metrics `optional:"true"`
	Redis     *redis.Client       `optional:"true"`
}

// Dead letters still reach the log when redis is unset or down.
func provideDeadLetter(p Params) DeadLetter {
	if p.Redis == nil {
		return NewLogDeadLetter(p.Log)
	}
	dl := NewRedisDeadLetter(p.Redis, p.Cfg.Redis.DeadLetterList, p.Log)
	if err := obsmetrics.RegisterDeadLetterBacklog(prometheus.DefaultRegisterer, dl.Pending); err != nil {
		p.Log.Warn("register dead letter backlog metric", zap.Error(err))
	}
	return dl
}

func provideDispatcher(p Params, deadLetter DeadLetter) (*Dispatcher, Submitter) {
	d := New(Config{
		QueueSize: p.Cfg.Notification.QueueSize,
		Workers:   p.Cfg.Notification.Workers,
	}, p.Log, deadLetter, p.Metrics)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			d.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return d.Stop(ctx)
		},
	})
	return d, d
}
