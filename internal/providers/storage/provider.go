package storage

import (
	"context"
	"errors"
	"time"
)

// MaxSignTTL is the longest lifetime an S3 presigned URL may have.
const MaxSignTTL = 7 * 24 * time.Hour

var ErrEmptyKey = errors.New("empty_object_key")

// SignedURL is a time-limited link to an object.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	// Sign returns a download link. ttl is clamped to MaxSignTTL and
	// filename, when set, becomes the attachment name.
	Sign(ctx context.Context, key string, ttl time.Duration, filename string) (SignedURL, error)
	Exists(ctx context.Context, key string) (bool, error)
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Hour
	}
	if ttl > MaxSignTTL {
		return MaxSignTTL
	}
	return ttl
}
