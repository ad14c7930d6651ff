package redis

import (
	"context"
	"testing"
	"time"
)

func TestTokenDenylist_MarkAndCheck(t *testing.T) {
	client, server := newTestRedis(t)
	denylist := NewTokenDenylist(client, "revoked")

	ctx := context.Background()
	ttl := 2 * time.Minute

	if err := denylist.MarkRevoked(ctx, "jti-123", "password_changed", ttl); err != nil {
		t.Fatalf("MarkRevoked returned error: %v", err)
	}
	if err := denylist.MarkRevoked(ctx, "jti-123", "other", ttl); err != nil {
		t.Fatalf("second MarkRevoked returned error: %v", err)
	}

	revoked, reason, err := denylist.IsRevoked(ctx, "jti-123")
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if !revoked || reason != "password_changed" {
		t.Fatalf("expected revoked with first reason, got %v %q", revoked, reason)
	}

	remaining := server.TTL("revoked:jti-123")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}

	server.FastForward(ttl + time.Second)
	revoked, _, err = denylist.IsRevoked(ctx, "jti-123")
	if err != nil {
		t.Fatalf("IsRevoked returned error: %v", err)
	}
	if revoked {
		t.Fatalf("expected entry to expire with the token")
	}
}

func TestTokenDenylist_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	denylist := NewTokenDenylist(client, "")

	if err := denylist.MarkRevoked(context.Background(), " ", "reason", time.Minute); err == nil {
		t.Fatalf("expected error for empty jti")
	}
	if err := denylist.MarkRevoked(context.Background(), "jti", "reason", 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
	if _, _, err := denylist.IsRevoked(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty jti in IsRevoked")
	}
}
