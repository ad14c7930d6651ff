package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
)

// StubPublisher logs activity entries instead of sending them. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) PublishActivity(_ context.Context, entry domain.ActivityEntry) error {
	p.logger.Debug("activity event (stub)",
		zap.String("event_id", entry.ID),
		zap.String("action", string(entry.Action)),
		zap.String("subject", entry.SubjectUsername),
		zap.String("record_id", entry.RecordID),
		zap.String("performed_by", entry.PerformedBy),
		zap.Time("timestamp", entry.Timestamp),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
