package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/repository"
)

const (
	defaultUserPrefix = "user"

	fieldPassword          = "password"
	fieldRole              = "role"
	fieldCreatedAt         = "created_at"
	fieldPasswordChangedAt = "password_changed_at"
)

// UserRepository stores accounts as hashes under <prefix>:<username>.
type UserRepository struct {
	client *red.Client
	prefix string
}

// NewUserRepository constructs a Redis-backed credential store.
func NewUserRepository(client *red.Client, keyPrefix string) *UserRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultUserPrefix
	}
	return &UserRepository{client: client, prefix: prefix}
}

// Create atomically stores the user unless the username is already taken.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	key := r.key(user.Username)
	if key == "" {
		return fmt.Errorf("username is required")
	}

	fields := map[string]string{
		fieldPassword:          user.PasswordHash,
		fieldRole:              user.Role.String(),
		fieldCreatedAt:         formatUnix(user.CreatedAt),
		fieldPasswordChangedAt: formatUnix(user.PasswordChangedAt),
	}

	created, err := createIfAbsent.Run(ctx, r.client, []string{key}, flattenFields(fields)...).Int()
	if err != nil {
		return fmt.Errorf("redis create user: %w", err)
	}
	if created == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

// Get loads a single account.
func (r *UserRepository) Get(ctx context.Context, username string) (*domain.User, error) {
	key := r.key(username)
	if key == "" {
		return nil, repository.ErrNotFound
	}

	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall user: %w", err)
	}
	if len(values) == 0 || values[fieldPassword] == "" {
		return nil, repository.ErrNotFound
	}

	user, err := r.decode(strings.TrimSpace(username), values)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns every account ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	keys, err := scanKeys(ctx, r.client, r.prefix+":*")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []domain.User{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*red.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, red.Nil) {
		return nil, fmt.Errorf("redis list users: %w", err)
	}

	users := make([]domain.User, 0, len(keys))
	for i, cmd := range cmds {
		values, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("redis hgetall user: %w", err)
		}
		// Deleted between SCAN and HGETALL.
		if len(values) == 0 {
			continue
		}
		user, err := r.decode(strings.TrimPrefix(keys[i], r.prefix+":"), values)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// UpdateRole overwrites the role of an existing account.
func (r *UserRepository) UpdateRole(ctx context.Context, username string, role domain.Role) error {
	return r.updateExisting(ctx, username, map[string]string{fieldRole: role.String()})
}

// UpdatePassword overwrites the password hash of an existing account.
func (r *UserRepository) UpdatePassword(ctx context.Context, username, passwordHash string, changedAt time.Time) error {
	return r.updateExisting(ctx, username, map[string]string{
		fieldPassword:          passwordHash,
		fieldPasswordChangedAt: formatUnix(changedAt),
	})
}

// Delete removes the account.
func (r *UserRepository) Delete(ctx context.Context, username string) error {
	key := r.key(username)
	if key == "" {
		return repository.ErrNotFound
	}

	removed, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis delete user: %w", err)
	}
	if removed == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) updateExisting(ctx context.Context, username string, fields map[string]string) error {
	key := r.key(username)
	if key == "" {
		return repository.ErrNotFound
	}

	reply, err := updateIfPresent.Run(ctx, r.client, []string{key}, flattenFields(fields)...).Result()
	if err != nil {
		return fmt.Errorf("redis update user: %w", err)
	}
	_, found, err := hashFromReply(reply)
	if err != nil {
		return err
	}
	if !found {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) decode(username string, values map[string]string) (domain.User, error) {
	role, err := domain.ParseRole(values[fieldRole])
	if err != nil {
		return domain.User{}, fmt.Errorf("decode user %s: %w", username, err)
	}
	return domain.User{
		Username:          username,
		PasswordHash:      values[fieldPassword],
		Role:              role,
		CreatedAt:         parseUnix(values[fieldCreatedAt]),
		PasswordChangedAt: parseUnix(values[fieldPasswordChangedAt]),
	}, nil
}

func (r *UserRepository) key(username string) string {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.prefix, trimmed)
}

func formatUnix(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func parseUnix(raw string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

var _ port.UserRepository = (*UserRepository)(nil)
