package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"

	"github.com/arklim/residency-registry/internal/core/port"
)

// acquireAttempt trims, counts and conditionally records in one round-trip.
// KEYS[1] attempt set, ARGV: now ms, exclusive floor ms, limit, member, ttl ms.
// Returns {allowed, count, oldest score}.
var acquireAttempt = red.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < tonumber(ARGV[3]) then
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
	count = count + 1
	allowed = 1
end
if count > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local score = '0'
if oldest[2] then
	score = oldest[2]
end
return {allowed, count, score}
`)

// AttemptStoreConfig controls key naming for attempt windows.
type AttemptStoreConfig struct {
	KeyPrefix string
}

// AttemptStore keeps per-key attempt timestamps in sorted sets scored by Unix milliseconds.
type AttemptStore struct {
	client *red.Client
	cfg    AttemptStoreConfig
}

func NewAttemptStore(client *red.Client, cfg AttemptStoreConfig) *AttemptStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit"
	}
	return &AttemptStore{client: client, cfg: cfg}
}

// Acquire runs the sliding-window check and the write as a single script.
func (s *AttemptStore) Acquire(ctx context.Context, key string, limit int, window time.Duration, at time.Time) (port.AttemptWindow, error) {
	if window <= 0 {
		return port.AttemptWindow{}, errors.New("window must be positive")
	}
	if limit <= 0 {
		return port.AttemptWindow{}, errors.New("limit must be positive")
	}

	now := at.UnixMilli()
	floor := now - window.Milliseconds()
	reply, err := acquireAttempt.Run(ctx, s.client, []string{s.key(key)},
		now,
		"("+strconv.FormatInt(floor, 10),
		limit,
		uuid.NewString(),
		max(window.Milliseconds(), 1),
	).Slice()
	if err != nil {
		return port.AttemptWindow{}, fmt.Errorf("redis acquire attempt: %w", err)
	}
	return parseAttemptReply(reply)
}

// Reset drops the attempt set for key.
func (s *AttemptStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis reset attempts: %w", err)
	}
	return nil
}

func (s *AttemptStore) key(key string) string {
	return s.cfg.KeyPrefix + ":" + key
}

func parseAttemptReply(reply []any) (port.AttemptWindow, error) {
	if len(reply) != 3 {
		return port.AttemptWindow{}, fmt.Errorf("redis: unexpected attempt reply length %d", len(reply))
	}
	allowed, ok1 := reply[0].(int64)
	count, ok2 := reply[1].(int64)
	score, ok3 := reply[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return port.AttemptWindow{}, fmt.Errorf("redis: unexpected attempt reply types %T/%T/%T", reply[0], reply[1], reply[2])
	}
	oldestMs, err := strconv.ParseFloat(score, 64)
	if err != nil {
		return port.AttemptWindow{}, fmt.Errorf("redis: parse oldest attempt %q: %w", score, err)
	}

	window := port.AttemptWindow{Allowed: allowed == 1, Count: int(count)}
	if oldestMs > 0 {
		window.Oldest = time.UnixMilli(int64(oldestMs)).UTC()
	}
	return window, nil
}

var _ port.AttemptStore = (*AttemptStore)(nil)
