package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/academy/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackfiller struct {
	calls int
	limit int
	done  int
	err   error
	block bool
}

func (f *fakeBackfiller) BackfillArtifacts(ctx context.Context, limit int) (int, error) {
	f.calls++
	f.limit = limit
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return f.done, f.err
}

func newTestScheduler(t *testing.T, b *fakeBackfiller, cfg Config) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return &Scheduler{
		log:        zap.NewNop(),
		cfg:        cfg.withDefaults(),
		genID:      node,
		clock:      clock.NewFakeClock(time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)),
		backfiller: b,
	}
}

func TestRunOnceBackfillsWithConfiguredBatch(t *testing.T) {
	b := &fakeBackfiller{done: 3}
	s := newTestScheduler(t, b, Config{ArtifactBatchSize: 10})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 10, b.limit)
}

func TestRunOnceWrapsJobError(t *testing.T) {
	boom := errors.New("boom")
	b := &fakeBackfiller{err: boom}
	s := newTestScheduler(t, b, Config{})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), JobArtifactBackfill)
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	b := &fakeBackfiller{block: true}
	s := newTestScheduler(t, b, Config{JobTimeout: 5 * time.Millisecond})

	assert.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, b.calls)
}

func TestDisabledJobIsSkipped(t *testing.T) {
	b := &fakeBackfiller{}
	s := newTestScheduler(t, b, Config{EnabledJobs: []string{"something_else"}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Zero(t, b.calls)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)
}
