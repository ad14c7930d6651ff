package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/infra/config"
)

const (
	activityStream = "activity"
	schemaVersion  = "1.0"
)

// ActivityPublisher mirrors activity log entries onto the audit topic.
type ActivityPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

func NewActivityPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *ActivityPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type activityEnvelope struct {
	EventID   string               `json:"event_id"`
	EventType string               `json:"event_type"`
	Timestamp time.Time            `json:"timestamp"`
	Version   string               `json:"version"`
	Payload   domain.ActivityEntry `json:"payload"`
	Metadata  map[string]string    `json:"metadata,omitempty"`
}

// PublishActivity enqueues the entry keyed by its subject so related entries stay ordered.
func (p *ActivityPublisher) PublishActivity(ctx context.Context, entry domain.ActivityEntry) error {
	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	payload, err := json.Marshal(activityEnvelope{
		EventID:   entry.ID,
		EventType: "registry.activity." + string(entry.Action),
		Timestamp: entry.Timestamp.UTC(),
		Version:   schemaVersion,
		Payload:   entry,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal activity envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(activityStream),
		Key:   sarama.StringEncoder(partitionKey(entry)),
		Value: sarama.ByteEncoder(payload),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func partitionKey(entry domain.ActivityEntry) string {
	switch {
	case entry.SubjectUsername != "":
		return "user:" + entry.SubjectUsername
	case entry.RecordID != "":
		return "record:" + entry.RecordID
	default:
		return entry.PerformedBy
	}
}

var _ port.EventPublisher = (*ActivityPublisher)(nil)
