package config

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsWithSecret(t *testing.T) {
	t.Setenv("REGISTRY_JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Driver != StoreDriverRedis {
		t.Fatalf("expected redis driver by default, got %q", cfg.Store.Driver)
	}
	if cfg.JWT.AccessTokenTTL != time.Hour {
		t.Fatalf("expected 1h token ttl, got %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.JWT.RevocationEnabled {
		t.Fatalf("expected revocation disabled by default")
	}
	if cfg.Redis.UserPrefix != "user" || cfg.Redis.RecordPrefix != "student" {
		t.Fatalf("unexpected key prefixes: %+v", cfg.Redis)
	}
}

func TestLoad_UnprefixedEnvAccepted(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORE_DRIVER", "postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Driver != StoreDriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Store.Driver)
	}
}

func TestLoad_FailsClosedWithoutSecret(t *testing.T) {
	t.Setenv("REGISTRY_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); !errors.Is(err, ErrMissingJWTSecret) {
		t.Fatalf("expected ErrMissingJWTSecret, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := AppConfig{
		Store: StoreSettings{Driver: StoreDriverRedis},
		JWT:   JWTSettings{Secret: testSecret, AccessTokenTTL: time.Hour},
	}

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   error
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "short secret", mutate: func(c *AppConfig) { c.JWT.Secret = "short" }, want: ErrWeakJWTSecret},
		{name: "unknown driver", mutate: func(c *AppConfig) { c.Store.Driver = "etcd" }, want: ErrUnknownStoreDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
