package port

import (
	"context"
	"time"

	"github.com/arklim/residency-registry/internal/core/domain"
)

// UserRepository is the credential store keyed by username.
//
// Create must be an atomic check-and-set: it returns repository.ErrAlreadyExists
// when the username is taken, without overwriting. UpdateRole and UpdatePassword
// are conditional on existence and return repository.ErrNotFound instead of
// recreating a deleted account.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	Get(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, username string, role domain.Role) error
	UpdatePassword(ctx context.Context, username, passwordHash string, changedAt time.Time) error
	Delete(ctx context.Context, username string) error
}
