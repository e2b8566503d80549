package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Letter is a job that could not be completed.
type Letter struct {
	Kind     string    `json:"kind"`
	Name     string    `json:"name"`
	Reason   string    `json:"reason"`
	Error    string    `json:"error"`
	Payload  any       `json:"payload,omitempty"`
	FailedAt time.Time `json:"failed_at"`
}

type DeadLetter interface {
	Push(ctx context.Context, letter Letter) error
}

type logDeadLetter struct {
	log *zap.Logger
}

func NewLogDeadLetter(log *zap.Logger) DeadLetter {
	return &logDeadLetter{log: log.Named("dispatch.dead_letter")}
}

func (l *logDeadLetter) Push(_ context.Context, letter Letter) error {
	l.log.Warn("dead letter",
		zap.String("kind", letter.Kind),
		zap.String("name", letter.Name),
		zap.String("reason", letter.Reason),
		zap.String("error", letter.Error),
	)
	return nil
}

// RedisDeadLetter appends letters to a Redis list for operators to inspect
// and replay. It also logs each letter.
type RedisDeadLetter struct {
	client *redis.Client
	key    string
	log    DeadLetter
}

func NewRedisDeadLetter(client *redis.Client, key string, log *zap.Logger) *RedisDeadLetter {
	return &RedisDeadLetter{client: client, key: key, log: NewLogDeadLetter(log)}
}

func (r *RedisDeadLetter) Push(ctx context.Context, letter Letter) error {
	_ = r.log.Push(ctx, letter)
	body, err := json.Marshal(letter)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, r.key, body).Err()
}

// Pending returns how many letters are waiting in the list.
func (r *RedisDeadLetter) Pending(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}
