package port

import (
	"context"

	"github.com/arklim/residency-registry/internal/core/domain"
)

// RecordRepository persists residency records keyed by identifier.
//
// Create fails with repository.ErrAlreadyExists on an identifier collision.
// Update applies all changes in one atomic write and fails with
// repository.ErrNotFound when the record is absent.
type RecordRepository interface {
	Create(ctx context.Context, record domain.Record) error
	Get(ctx context.Context, id string) (*domain.Record, error)
	List(ctx context.Context) ([]domain.Record, error)
	Update(ctx context.Context, id string, changes map[string]string) (*domain.Record, error)
	Delete(ctx context.Context, id string) error
}
