package scheduler

import (
	"time"

	"github.com/smallbiznis/academy/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval       time.Duration
	ArtifactBatchSize int
	JobTimeout        time.Duration
	LockTTL           time.Duration
	EnabledJobs       []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:       5 * time.Minute,
		ArtifactBatchSize: 25,
		JobTimeout:        2 * time.Minute,
		LockTTL:           4 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:       cfg.Scheduler.ArtifactBackfillInterval,
		ArtifactBatchSize: cfg.Scheduler.ArtifactBackfillBatch,
		LockTTL:           cfg.Scheduler.JobLockTTL,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.ArtifactBatchSize <= 0 {
		c.ArtifactBatchSize = defaults.ArtifactBatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
