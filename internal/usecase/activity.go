package usecase

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/infra/telemetry"
)

// ActivityService appends to and reads the audit log.
type ActivityService struct {
	repo      port.ActivityRepository
	publisher port.EventPublisher
	metrics   *telemetry.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewActivityService constructs ActivityService. publisher and metrics may be nil.
func NewActivityService(repo port.ActivityRepository, publisher port.EventPublisher, metrics *telemetry.Metrics, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Record appends entry on a best-effort basis. Failures are logged and counted, never
// returned: the mutation that produced the entry has already been committed.
func (s *ActivityService) Record(ctx context.Context, entry domain.ActivityEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		s.metrics.ActivityAppendFailure()
		s.logger.Error("failed to append activity entry",
			zap.String("action", string(entry.Action)),
			zap.String("performed_by", entry.PerformedBy),
			zap.Error(err),
		)
		return
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishActivity(ctx, entry); err != nil {
		s.logger.Warn("failed to publish activity entry",
			zap.String("id", entry.ID),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
	}
}

// List returns entries most-recent-first. A non-positive limit returns everything.
func (s *ActivityService) List(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	entries, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	if entries == nil {
		entries = []domain.ActivityEntry{}
	}
	return entries, nil
}
