package airdrop

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"geodrop/internal/db"
	"geodrop/internal/observability/metrics"
)

// AuditStore persists audit events.
type AuditStore interface {
	InsertAuditLog(ctx context.Context, entry db.AuditLog) error
}

// AuditRecorder stores audit events consumed from Kafka.
type AuditRecorder struct {
	store AuditStore
	log   logrus.FieldLogger
}

// NewAuditRecorder builds a recorder.
func NewAuditRecorder(store AuditStore, log logrus.FieldLogger) *AuditRecorder {
	return &AuditRecorder{store: store, log: log}
}

// HandleEvent inserts the event into the audit log. Redelivered events are ignored by the store.
func (r *AuditRecorder) HandleEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() { metrics.ObserveConsumerProcessing("handle_event", time.Since(start)) }()
	if err := r.store.InsertAuditLog(ctx, db.AuditLog{
		EventID:     event.ID,
		EventType:   event.Type,
		Actor:       event.Actor,
		AirdropID:   event.AirdropID,
		Amount:      event.Amount,
		ClaimsCount: event.ClaimsCount,
		OccurredAt:  event.Timestamp,
	}); err != nil {
		r.log.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"airdrop_id": event.AirdropID,
		}).WithError(err).Error("audit recorder: insert failed")
		return err
	}
	return nil
}
