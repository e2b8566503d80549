package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/academy/internal/config"
)

const keyPurchaseStudent = "academy:purchase:student:%s"

// PurchaseLimiter throttles checkout creation per student. A nil or disabled
// limiter allows everything.
type PurchaseLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewPurchaseLimiter(cfg config.Config, client *redis.Client) (*PurchaseLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("rate limit requires REDIS_ADDR")
	}
	if limitCfg.PurchaseRate <= 0 || limitCfg.PurchaseBurst <= 0 {
		return nil, errors.New("purchase rate limit must be positive")
	}
	return &PurchaseLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.PurchaseRate,
		burst:  limitCfg.PurchaseBurst,
	}, nil
}

func (l *PurchaseLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *PurchaseLimiter) Allow(ctx context.Context, studentID snowflake.ID) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyPurchaseStudent, studentID.String()), l.rate, l.burst)
}
