package usecase

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/infra/telemetry"
)

func TestActivityServiceRecordPublishesAfterAppend(t *testing.T) {
	repo := &memoryActivityRepo{}
	publisher := &recordingPublisher{}
	svc := NewActivityService(repo, publisher, nil, zaptest.NewLogger(t))

	svc.Record(context.Background(), domain.ActivityEntry{Action: domain.ActionRecordCreated, RecordID: "1001", PerformedBy: "root"})

	if len(repo.entries) != 1 || len(publisher.entries) != 1 {
		t.Fatalf("expected one stored and one published entry, got %d/%d", len(repo.entries), len(publisher.entries))
	}
	if repo.entries[0].ID != publisher.entries[0].ID {
		t.Fatalf("published entry should match the stored one")
	}
}

func TestActivityServiceRecordFailureIsSwallowed(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	core, logs := observer.New(zap.ErrorLevel)
	repo := &memoryActivityRepo{err: errStoreDown}
	publisher := &recordingPublisher{}
	svc := NewActivityService(repo, publisher, metrics, zap.New(core))

	svc.Record(context.Background(), domain.ActivityEntry{Action: domain.ActionUserDeleted, SubjectUsername: "bob", PerformedBy: "root"})

	if got := testutil.ToFloat64(metrics.ActivityAppendFailures); got != 1 {
		t.Fatalf("expected one append failure, got %v", got)
	}
	if logs.FilterMessage("failed to append activity entry").Len() != 1 {
		t.Fatalf("expected append failure to be logged")
	}
	if len(publisher.entries) != 0 {
		t.Fatalf("entries that failed to persist must not be published")
	}
}

func TestActivityServicePublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, &recordingPublisher{err: errStoreDown}, nil, zap.New(core))

	svc.Record(context.Background(), domain.ActivityEntry{Action: domain.ActionRecordDeleted, RecordID: "7", PerformedBy: "root"})

	if len(repo.entries) != 1 {
		t.Fatalf("append should succeed regardless of the stream")
	}
	if logs.FilterMessage("failed to publish activity entry").Len() != 1 {
		t.Fatalf("expected publish failure to be logged")
	}
}

func TestActivityServiceListMostRecentFirst(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, nil, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	for _, action := range []domain.ActivityAction{domain.ActionRecordCreated, domain.ActionRecordUpdated, domain.ActionRecordDeleted} {
		svc.Record(ctx, domain.ActivityEntry{Action: action, RecordID: "1", PerformedBy: "root"})
	}

	all, err := svc.List(ctx, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 || all[0].Action != domain.ActionRecordDeleted || all[2].Action != domain.ActionRecordCreated {
		t.Fatalf("unexpected order: %+v", all)
	}

	limited, err := svc.List(ctx, 2)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(limited) != 2 || limited[0].Action != domain.ActionRecordDeleted {
		t.Fatalf("unexpected limited listing: %+v", limited)
	}

	empty, err := NewActivityService(&memoryActivityRepo{}, nil, nil, nil).List(ctx, 10)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v (err %v)", empty, err)
	}
}
