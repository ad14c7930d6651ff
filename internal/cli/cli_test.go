package cli

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/arklim/residency-registry/internal/infra/config"
)

func useTestConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("invalid miniredis port: %v", err)
	}

	cfg := &config.AppConfig{
		App:   config.AppSettings{Env: "test"},
		Store: config.StoreSettings{Driver: config.StoreDriverRedis},
		Redis: config.RedisSettings{
			Host:         mr.Host(),
			Port:         port,
			UserPrefix:   "user",
			RecordPrefix: "student",
			ActivityKey:  "activity:logs",
		},
		JWT: config.JWTSettings{
			Secret:         "0123456789abcdef0123456789abcdef",
			Issuer:         "residency-registry",
			AccessTokenTTL: time.Hour,
		},
		Argon2: config.Argon2Settings{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	}

	previous := loadConfig
	loadConfig = func() (*config.AppConfig, error) { return cfg, nil }
	t.Cleanup(func() { loadConfig = previous })
	return cfg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithInput(t, "", args...)
}

func runWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUserCreateListAndSetRole(t *testing.T) {
	useTestConfig(t)

	out, err := run(t, "user", "list")
	if err != nil {
		t.Fatalf("user list returned error: %v", err)
	}
	if !strings.Contains(out, "No users registered") {
		t.Fatalf("expected empty listing hint, got %q", out)
	}

	if out, err = run(t, "user", "create", "alice", "--role", "admin", "--password", "secret1"); err != nil {
		t.Fatalf("user create returned error: %v", err)
	}
	if !strings.Contains(out, "created alice (admin)") {
		t.Fatalf("unexpected create output %q", out)
	}

	if _, err := run(t, "user", "set-role", "alice", "user"); err != nil {
		t.Fatalf("set-role returned error: %v", err)
	}

	out, err = run(t, "user", "list")
	if err != nil {
		t.Fatalf("user list returned error: %v", err)
	}
	if !strings.Contains(out, "alice") || !strings.Contains(out, "user") {
		t.Fatalf("unexpected listing %q", out)
	}

	out, err = run(t, "logs")
	if err != nil {
		t.Fatalf("logs returned error: %v", err)
	}
	if !strings.Contains(out, "RoleUpdated") || !strings.Contains(out, operatorActor) {
		t.Fatalf("expected role change in activity output, got %q", out)
	}
}

func TestUserCreateRejectsInvalidRole(t *testing.T) {
	useTestConfig(t)

	if _, err := run(t, "user", "create", "mallory", "--role", "root", "--password", "secret1"); err == nil {
		t.Fatalf("expected error for invalid role")
	}
}

func TestUserCreateRequiresPassword(t *testing.T) {
	useTestConfig(t)
	t.Setenv(passwordEnv, "")

	if _, err := run(t, "user", "create", "bob"); !errors.Is(err, errPasswordRequired) {
		t.Fatalf("expected errPasswordRequired, got %v", err)
	}
	if _, err := runWithInput(t, "\n", "user", "create", "bob", "--password-stdin"); !errors.Is(err, errPasswordRequired) {
		t.Fatalf("expected errPasswordRequired for empty stdin, got %v", err)
	}
	if _, err := run(t, "user", "create", "bob", "--password", "secret1", "--password-stdin"); err == nil {
		t.Fatalf("expected error when both password flags are set")
	}
}

func TestUserCreateReadsPasswordFromStdin(t *testing.T) {
	useTestConfig(t)

	if _, err := runWithInput(t, "stdin-secret\r\nignored\n", "user", "create", "carol", "--password-stdin"); err != nil {
		t.Fatalf("user create returned error: %v", err)
	}
	assertLogin(t, "carol", "stdin-secret")
}

func TestUserCreateReadsPasswordFromEnvironment(t *testing.T) {
	useTestConfig(t)
	t.Setenv(passwordEnv, "env-secret")

	if _, err := run(t, "user", "create", "dave"); err != nil {
		t.Fatalf("user create returned error: %v", err)
	}
	assertLogin(t, "dave", "env-secret")

	// An explicit flag wins over the environment.
	if _, err := run(t, "user", "create", "erin", "--password", "flag-secret"); err != nil {
		t.Fatalf("user create returned error: %v", err)
	}
	assertLogin(t, "erin", "flag-secret")
}

func assertLogin(t *testing.T, username, password string) {
	t.Helper()
	rt, err := openSession(context.Background())
	if err != nil {
		t.Fatalf("openSession returned error: %v", err)
	}
	defer rt.Close()

	if _, err := rt.services.Auth.Login(context.Background(), username, password); err != nil {
		t.Fatalf("login as %s failed: %v", username, err)
	}
}

func TestMigrateRequiresPostgres(t *testing.T) {
	useTestConfig(t)

	_, err := run(t, "migrate")
	if err == nil || !strings.Contains(err.Error(), "store.driver=postgres") {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestRootRequiresSubcommand(t *testing.T) {
	_, err := run(t)
	if !errors.Is(err, errSubcommandRequired) {
		t.Fatalf("expected errSubcommandRequired, got %v", err)
	}
}
