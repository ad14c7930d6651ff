package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/infra/logger"
	"github.com/arklim/residency-registry/internal/repository"
)

// RecordService applies the residency record rules on top of the record store.
type RecordService struct {
	records  port.RecordRepository
	activity *ActivityService
	log      *zap.Logger
}

// NewRecordService constructs RecordService.
func NewRecordService(records port.RecordRepository, activity *ActivityService, log *zap.Logger) *RecordService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordService{records: records, activity: activity, log: log}
}

// Create stores a complete record. An identifier collision is ErrRecordExists; the
// existing record is left untouched.
func (s *RecordService) Create(ctx context.Context, actor string, rec domain.Record) (domain.Record, error) {
	ctx, span := startSpan(ctx, "RecordService.Create", attribute.String("registry.actor", actor))
	var err error
	defer func() { endSpan(span, err) }()

	rec = rec.Normalize()
	if err = rec.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", ErrValidation, err)
		return domain.Record{}, err
	}

	if err = s.records.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			err = ErrRecordExists
			return domain.Record{}, err
		}
		err = fmt.Errorf("create record: %w", err)
		return domain.Record{}, err
	}

	s.log.Info("record created",
		zap.String("record_id", rec.ID),
		zap.String("email", logger.MaskEmail(rec.Email)),
		zap.String("performed_by", actor),
	)
	s.record(ctx, domain.ActivityEntry{Action: domain.ActionRecordCreated, RecordID: rec.ID, PerformedBy: actor})
	return rec, nil
}

// Get returns a single record.
func (s *RecordService) Get(ctx context.Context, id string) (domain.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Record{}, ErrRecordNotFound
	}
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Record{}, ErrRecordNotFound
		}
		return domain.Record{}, fmt.Errorf("get record: %w", err)
	}
	return *rec, nil
}

// List returns every record ordered by identifier.
func (s *RecordService) List(ctx context.Context) ([]domain.Record, error) {
	records, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if records == nil {
		records = []domain.Record{}
	}
	domain.SortRecords(records)
	return records, nil
}

// Update merges the supplied non-blank fields into an existing record in one write.
func (s *RecordService) Update(ctx context.Context, actor, id string, patch domain.RecordPatch) (domain.Record, error) {
	ctx, span := startSpan(ctx, "RecordService.Update", attribute.String("registry.actor", actor))
	var err error
	defer func() { endSpan(span, err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		err = ErrRecordNotFound
		return domain.Record{}, err
	}

	changes := patch.Changes()
	if err = domain.ValidateChanges(changes); err != nil {
		err = fmt.Errorf("%w: %v", ErrValidation, err)
		return domain.Record{}, err
	}

	updated, err := s.records.Update(ctx, id, changes)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			err = ErrRecordNotFound
		case errors.Is(err, domain.ErrEmptyPatch):
			err = fmt.Errorf("%w: %v", ErrValidation, err)
		default:
			err = fmt.Errorf("update record: %w", err)
		}
		return domain.Record{}, err
	}

	fields := make([]string, 0, len(changes))
	for name := range changes {
		fields = append(fields, name)
	}
	s.log.Info("record updated",
		zap.String("record_id", id),
		zap.Strings("fields", fields),
		zap.String("performed_by", actor),
	)
	s.record(ctx, domain.ActivityEntry{Action: domain.ActionRecordUpdated, RecordID: id, PerformedBy: actor})
	return *updated, nil
}

// Delete removes a record.
func (s *RecordService) Delete(ctx context.Context, actor, id string) error {
	ctx, span := startSpan(ctx, "RecordService.Delete", attribute.String("registry.actor", actor))
	var err error
	defer func() { endSpan(span, err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		err = ErrRecordNotFound
		return err
	}

	if err = s.records.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrRecordNotFound
			return err
		}
		err = fmt.Errorf("delete record: %w", err)
		return err
	}

	s.log.Info("record deleted", zap.String("record_id", id), zap.String("performed_by", actor))
	s.record(ctx, domain.ActivityEntry{Action: domain.ActionRecordDeleted, RecordID: id, PerformedBy: actor})
	return nil
}

func (s *RecordService) record(ctx context.Context, entry domain.ActivityEntry) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, entry)
}
