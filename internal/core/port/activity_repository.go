package port

import (
	"context"

	"github.com/arklim/residency-registry/internal/core/domain"
)

// ActivityRepository is an append-only log. List returns entries most-recent-first;
// a non-positive limit returns everything.
type ActivityRepository interface {
	Append(ctx context.Context, entry domain.ActivityEntry) error
	List(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
}
