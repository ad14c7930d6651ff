package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/residency-registry/internal/core/port"
)

const defaultDenylistPrefix = "revoked"

// TokenDenylist records revoked token identifiers. Entries expire with the token.
type TokenDenylist struct {
	client *red.Client
	prefix string
}

// NewTokenDenylist wires a Redis client into a jti denylist.
func NewTokenDenylist(client *red.Client, keyPrefix string) *TokenDenylist {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultDenylistPrefix
	}
	return &TokenDenylist{client: client, prefix: prefix}
}

// MarkRevoked denylists jti for ttl. The first recorded reason is kept.
func (d *TokenDenylist) MarkRevoked(ctx context.Context, jti string, reason string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	key := d.key(jti)
	if key == "" {
		return errors.New("jti must not be empty")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "revoked"
	}

	if err := d.client.SetNX(ctx, key, reason, ttl).Err(); err != nil {
		return fmt.Errorf("redis denylist jti: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti is denylisted and why.
func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, string, error) {
	key := d.key(jti)
	if key == "" {
		return false, "", errors.New("jti must not be empty")
	}

	reason, err := d.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, red.Nil):
		return false, "", nil
	case err != nil:
		return false, "", fmt.Errorf("redis lookup jti: %w", err)
	}
	return true, reason, nil
}

func (d *TokenDenylist) key(jti string) string {
	trimmed := strings.TrimSpace(jti)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", d.prefix, trimmed)
}

var _ port.TokenDenylist = (*TokenDenylist)(nil)
