package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/repository"
)

const defaultRecordPrefix = "student"

// RecordRepository stores residency records as hashes under <prefix>:<id>.
type RecordRepository struct {
	client *red.Client
	prefix string
}

// NewRecordRepository constructs a Redis-backed record store.
func NewRecordRepository(client *red.Client, keyPrefix string) *RecordRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRecordPrefix
	}
	return &RecordRepository{client: client, prefix: prefix}
}

// Create stores the record unless the identifier is already in use.
func (r *RecordRepository) Create(ctx context.Context, record domain.Record) error {
	key := r.key(record.ID)
	if key == "" {
		return fmt.Errorf("record id is required")
	}

	created, err := createIfAbsent.Run(ctx, r.client, []string{key}, flattenFields(record.Fields())...).Int()
	if err != nil {
		return fmt.Errorf("redis create record: %w", err)
	}
	if created == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

func (r *RecordRepository) Get(ctx context.Context, id string) (*domain.Record, error) {
	key := r.key(id)
	if key == "" {
		return nil, repository.ErrNotFound
	}

	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall record: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	rec := domain.RecordFromFields(strings.TrimSpace(id), values)
	return &rec, nil
}

// List returns every stored record ordered by identifier.
func (r *RecordRepository) List(ctx context.Context) ([]domain.Record, error) {
	keys, err := scanKeys(ctx, r.client, r.prefix+":*")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []domain.Record{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*red.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, red.Nil) {
		return nil, fmt.Errorf("redis list records: %w", err)
	}

	records := make([]domain.Record, 0, len(keys))
	for i, cmd := range cmds {
		values, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("redis hgetall record: %w", err)
		}
		if len(values) == 0 {
			continue
		}
		records = append(records, domain.RecordFromFields(strings.TrimPrefix(keys[i], r.prefix+":"), values))
	}

	domain.SortRecords(records)
	return records, nil
}

// Update merges changes into an existing record in a single script call.
func (r *RecordRepository) Update(ctx context.Context, id string, changes map[string]string) (*domain.Record, error) {
	key := r.key(id)
	if key == "" {
		return nil, repository.ErrNotFound
	}
	if len(changes) == 0 {
		return nil, domain.ErrEmptyPatch
	}

	reply, err := updateIfPresent.Run(ctx, r.client, []string{key}, flattenFields(changes)...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis update record: %w", err)
	}
	values, found, err := hashFromReply(reply)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}

	rec := domain.RecordFromFields(strings.TrimSpace(id), values)
	return &rec, nil
}

func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	key := r.key(id)
	if key == "" {
		return repository.ErrNotFound
	}

	removed, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis delete record: %w", err)
	}
	if removed == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RecordRepository) key(id string) string {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.prefix, trimmed)
}

var _ port.RecordRepository = (*RecordRepository)(nil)
