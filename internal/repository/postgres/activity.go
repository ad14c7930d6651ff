package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
)

// ActivityRepository appends audit entries; seq (bigserial) defines their order.
type ActivityRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewActivityRepository(exec pgExecutor) *ActivityRepository {
	return &ActivityRepository{exec: exec, builder: newBuilder()}
}

func (r *ActivityRepository) Append(ctx context.Context, entry domain.ActivityEntry) error {
	stmt, args, err := r.builder.Insert(activityTable).
		Columns("id", "action", "subject_username", "record_id", "performed_by", "occurred_at").
		Values(
			entry.ID,
			string(entry.Action),
			nullable(entry.SubjectUsername),
			nullable(entry.RecordID),
			entry.PerformedBy,
			entry.Timestamp,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert activity sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// List returns entries newest first. A non-positive limit returns the whole log.
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	query := r.builder.Select("id", "action", "subject_username", "record_id", "performed_by", "occurred_at").
		From(activityTable).
		OrderBy("seq DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list activity sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ActivityEntry, 0)
	for rows.Next() {
		var (
			entry   domain.ActivityEntry
			action  string
			subject sql.NullString
			record  sql.NullString
		)
		if err := rows.Scan(&entry.ID, &action, &subject, &record, &entry.PerformedBy, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entry.Action = domain.ActivityAction(action)
		entry.SubjectUsername = subject.String
		entry.RecordID = record.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return entries, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ port.ActivityRepository = (*ActivityRepository)(nil)
