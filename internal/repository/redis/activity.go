package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
)

const defaultActivityKey = "activity:logs"

// ActivityRepository keeps the audit trail as a Redis list, newest entry at the head.
type ActivityRepository struct {
	client *red.Client
	key    string
	logger *zap.Logger
}

// NewActivityRepository constructs the list-backed activity log.
func NewActivityRepository(client *red.Client, key string, logger *zap.Logger) *ActivityRepository {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		trimmed = defaultActivityKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityRepository{client: client, key: trimmed, logger: logger}
}

func (r *ActivityRepository) Append(ctx context.Context, entry domain.ActivityEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal activity entry: %w", err)
	}
	if err := r.client.LPush(ctx, r.key, payload).Err(); err != nil {
		return fmt.Errorf("redis append activity: %w", err)
	}
	return nil
}

// List returns up to limit entries, most recent first. Unreadable entries are skipped.
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	raw, err := r.client.LRange(ctx, r.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list activity: %w", err)
	}

	entries := make([]domain.ActivityEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.ActivityEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			r.logger.Warn("skipping malformed activity entry", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var _ port.ActivityRepository = (*ActivityRepository)(nil)
