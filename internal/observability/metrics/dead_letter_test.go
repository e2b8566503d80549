package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDeadLetterBacklogReportsPending(t *testing.T) {
	backlog := NewDeadLetterBacklog(func(context.Context) (int64, error) { return 3, nil })
	if got := testutil.ToFloat64(backlog); got != 3 {
		t.Fatalf("expected 3 pending, got %v", got)
	}
}

func TestDeadLetterBacklogSkipsSampleOnError(t *testing.T) {
	backlog := NewDeadLetterBacklog(func(context.Context) (int64, error) { return 0, errors.New("redis down") })
	if n := testutil.CollectAndCount(backlog); n != 0 {
		t.Fatalf("expected no sample, got %d", n)
	}
}

func TestRegisterDeadLetterBacklogTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	pending := func(context.Context) (int64, error) { return 1, nil }
	if err := RegisterDeadLetterBacklog(reg, pending); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterDeadLetterBacklog(reg, pending); err != nil {
		t.Fatalf("second register: %v", err)
	}
	if n, err := testutil.GatherAndCount(reg, "academy_dispatch_dead_letters_pending"); err != nil || n != 1 {
		t.Fatalf("expected one series, got %d (%v)", n, err)
	}
}
