package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/residency-registry/internal/core/domain"
)

func TestActivityRepository_AppendStoresNullSubject(t *testing.T) {
	mock := newMock(t)
	repo := NewActivityRepository(mock)

	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO registry\.activity_log`).
		WithArgs("entry-1", "RecordDeleted", nil, "S-1", "root", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Append(context.Background(), domain.ActivityEntry{
		ID:          "entry-1",
		Action:      domain.ActionRecordDeleted,
		RecordID:    "S-1",
		PerformedBy: "root",
		Timestamp:   at,
	})
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
}

func TestActivityRepository_ListBySequence(t *testing.T) {
	mock := newMock(t)
	repo := NewActivityRepository(mock)

	at := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "action", "subject_username", "record_id", "performed_by", "occurred_at"}).
		AddRow("e2", "UserDeleted", "bob", nil, "root", at).
		AddRow("e1", "RoleUpdated", "bob", nil, "root", at)
	mock.ExpectQuery(`SELECT .* FROM registry\.activity_log ORDER BY seq DESC LIMIT 2`).WillReturnRows(rows)

	entries, err := repo.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "e2" || entries[0].Action != domain.ActionUserDeleted {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[1].RecordID != "" || entries[1].SubjectUsername != "bob" {
		t.Fatalf("unexpected nullable decoding: %+v", entries[1])
	}
}
