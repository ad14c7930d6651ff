package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arklim/residency-registry/internal/core/domain"
)

func TestRegistrationServiceRegisterSuccess(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewRegistrationService(repo, newTestHasher(t), nil, zaptest.NewLogger(t))

	summary, err := svc.Register(context.Background(), " alice ", "secret1", "user")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if summary.Username != "alice" || summary.Role != domain.RoleUser {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	stored := repo.users["alice"]
	if stored.PasswordHash == "" || stored.PasswordHash == "secret1" {
		t.Fatalf("expected password to be stored hashed, got %q", stored.PasswordHash)
	}
	if !strings.HasPrefix(stored.PasswordHash, "argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", stored.PasswordHash)
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestRegistrationServiceRegisterValidation(t *testing.T) {
	svc := NewRegistrationService(newMemoryUserRepo(), newTestHasher(t), nil, zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob", "secret1", "superuser"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := svc.Register(ctx, "bob", "12345", "user"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for short password, got %v", err)
	}
	if _, err := svc.Register(ctx, "   ", "secret1", "user"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank username, got %v", err)
	}
	if _, err := svc.Register(ctx, "bob", "123456", "user"); err != nil {
		t.Fatalf("six character password should be accepted, got %v", err)
	}
	if _, err := svc.Register(ctx, "carol", "      ", "user"); err != nil {
		t.Fatalf("six spaces meet the length rule and should be accepted, got %v", err)
	}
}

func TestRegistrationServiceRegisterDuplicateKeepsOriginal(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewRegistrationService(repo, newTestHasher(t), nil, zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := svc.Register(ctx, "carol", "first-pass", "admin"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	original := repo.users["carol"]

	if _, err := svc.Register(ctx, "carol", "second-pass", "user"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if got := repo.users["carol"]; got.PasswordHash != original.PasswordHash || got.Role != domain.RoleAdmin {
		t.Fatalf("duplicate registration modified the account: %+v", got)
	}
}

func TestRegistrationServiceConcurrentRegisterSingleWinner(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewRegistrationService(repo, newTestHasher(t), nil, zap.NewNop())

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		taken     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "dave", "password", "user")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrUsernameTaken):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || taken != workers-1 {
		t.Fatalf("expected exactly one winner, got successes=%d taken=%d", successes, taken)
	}
}

func TestRegistrationServiceNeverLogsPassword(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	svc := NewRegistrationService(newMemoryUserRepo(), newTestHasher(t), nil, zap.New(core))

	const password = "password"
	if _, err := svc.Register(context.Background(), "erin", password, "user"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if logs.FilterMessage("weak password accepted").Len() != 1 {
		t.Fatalf("expected weak password to be flagged")
	}
	for _, entry := range logs.All() {
		for key, value := range entry.ContextMap() {
			if s, ok := value.(string); ok && (s == password || strings.HasPrefix(s, "argon2id$")) {
				t.Fatalf("log %q leaked credential material in field %q", entry.Message, key)
			}
		}
	}
}

func TestRegistrationServiceStoreFailure(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.err = errStoreDown
	svc := NewRegistrationService(repo, newTestHasher(t), nil, zaptest.NewLogger(t))

	_, err := svc.Register(context.Background(), "frank", "secret1", "user")
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
	if errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("store failure must not look like a duplicate")
	}
}
