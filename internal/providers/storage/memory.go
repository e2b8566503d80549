package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Memory keeps objects in process. It backs tests and local runs without a
// bucket.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	// Now stamps link expiry.
	Now func() time.Time
	// PutErr, when set, fails every Put.
	PutErr error
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte), Now: time.Now}
}

func (m *Memory) Put(ctx context.Context, key, contentType string, body []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), body...)
	return nil
}

func (m *Memory) Sign(ctx context.Context, key string, ttl time.Duration, filename string) (SignedURL, error) {
	if key == "" {
		return SignedURL{}, ErrEmptyKey
	}
	expires := m.Now().Add(clampTTL(ttl)).UTC()
	q := url.Values{"expires": {fmt.Sprint(expires.Unix())}}
	if filename != "" {
		q.Set("filename", filename)
	}
	return SignedURL{URL: "memory://" + key + "?" + q.Encode(), ExpiresAt: expires}, nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Delete drops an object so tests can simulate a lost artifact.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
