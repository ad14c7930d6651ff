package port

import (
	"context"

	"github.com/arklim/residency-registry/internal/core/domain"
)

// EventPublisher mirrors activity entries to the audit stream.
type EventPublisher interface {
	PublishActivity(ctx context.Context, entry domain.ActivityEntry) error
}
