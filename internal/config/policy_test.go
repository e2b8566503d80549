package config

import (
	"testing"
	"time"
)

func TestValidatePolicy(t *testing.T) {
	if err := validatePolicy(DefaultPolicy()); err != nil {
		t.Fatalf("default policy should be valid: %v", err)
	}

	bad := DefaultPolicy()
	bad.Certificate.DownloadLinkTTL = 0
	if err := validatePolicy(bad); err == nil {
		t.Fatalf("expected error for zero download ttl")
	}

	bad = DefaultPolicy()
	bad.Certificate.EmailLinkTTL = time.Minute
	if err := validatePolicy(bad); err == nil {
		t.Fatalf("expected error when email ttl is shorter than download ttl")
	}
}

func TestStaticPolicyHolder(t *testing.T) {
	p := DefaultPolicy()
	p.Certificate.DownloadLinkTTL = 2 * time.Hour
	holder := NewStaticPolicyHolder(p)
	if got := holder.Get().Certificate.DownloadLinkTTL; got != 2*time.Hour {
		t.Fatalf("expected 2h, got %s", got)
	}

	var nilHolder *PolicyHolder
	if got := nilHolder.Get().Certificate.DownloadLinkTTL; got != time.Hour {
		t.Fatalf("expected default 1h from nil holder, got %s", got)
	}
}

func TestLoadGatewayDefaults(t *testing.T) {
	t.Setenv("PAYHERE_CURRENCY", "usd")
	t.Setenv("NOTIFICATION_WORKERS", "4")
	t.Setenv("ARTIFACT_BACKFILL_INTERVAL", "not-a-duration")

	cfg := Load()
	if cfg.Gateway.Currency != "USD" {
		t.Fatalf("expected upper-cased currency, got %q", cfg.Gateway.Currency)
	}
	if cfg.Notification.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Notification.Workers)
	}
	if cfg.Scheduler.ArtifactBackfillInterval != 5*time.Minute {
		t.Fatalf("expected default interval, got %s", cfg.Scheduler.ArtifactBackfillInterval)
	}
}
