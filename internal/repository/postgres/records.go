package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/repository"
)

// RecordRepository stores residency records with their attributes in a jsonb column.
type RecordRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewRecordRepository(exec pgExecutor) *RecordRepository {
	return &RecordRepository{exec: exec, builder: newBuilder()}
}

// Create inserts the record unless the identifier is taken.
func (r *RecordRepository) Create(ctx context.Context, record domain.Record) error {
	payload, err := json.Marshal(record.Fields())
	if err != nil {
		return fmt.Errorf("marshal record attributes: %w", err)
	}

	stmt, args, err := r.builder.Insert(recordsTable).
		Columns("id", "attributes").
		Values(record.ID, payload).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert record sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

func (r *RecordRepository) Get(ctx context.Context, id string) (*domain.Record, error) {
	stmt, args, err := r.builder.Select("id", "attributes").
		From(recordsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select record sql: %w", err)
	}

	record, err := scanRecord(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	return &record, nil
}

// List returns every record ordered by identifier.
func (r *RecordRepository) List(ctx context.Context) ([]domain.Record, error) {
	stmt, args, err := r.builder.Select("id", "attributes").
		From(recordsTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list records sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Update merges changes into the stored attributes in a single statement.
func (r *RecordRepository) Update(ctx context.Context, id string, changes map[string]string) (*domain.Record, error) {
	if len(changes) == 0 {
		return nil, domain.ErrEmptyPatch
	}
	payload, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("marshal record changes: %w", err)
	}

	stmt, args, err := r.builder.Update(recordsTable).
		Set("attributes", squirrel.Expr("attributes || ?::jsonb", payload)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING id, attributes").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update record sql: %w", err)
	}

	record, err := scanRecord(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update record: %w", err)
	}
	return &record, nil
}

func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete(recordsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete record sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (domain.Record, error) {
	var (
		id  string
		raw []byte
	)
	if err := row.Scan(&id, &raw); err != nil {
		return domain.Record{}, err
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.Record{}, fmt.Errorf("decode record %s attributes: %w", id, err)
	}
	return domain.RecordFromFields(id, fields), nil
}

var _ port.RecordRepository = (*RecordRepository)(nil)
