package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/stan.go"
	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/logger"
	"citypulse/internal/metrics"
	"citypulse/internal/models"
	"citypulse/internal/repository"
	"citypulse/internal/search"
)

type Handlers struct {
	events  repository.EventStore
	indexer search.Indexer
	timeout time.Duration
}

// NewHandlers - indexer may be nil, then records are only logged
func NewHandlers(events repository.EventStore, indexer search.Indexer) *Handlers {
	return &Handlers{events: events, indexer: indexer, timeout: 30 * time.Second}
}

// Handle logs the audit record and re-indexes the event when the record
// changes searchable fields. The index is rebuilt from the stored event, so
// redelivered and reordered records converge.
func (h *Handlers) Handle(ctx context.Context, rec models.AuditRecord) error {
	log := logger.WithContext(ctx)
	log.Info("Audit record",
		"subject", rec.Subject,
		"event_id", rec.EventID,
		"complaint_id", rec.ComplaintID,
		"actor_id", rec.ActorID,
		"timestamp", rec.Timestamp,
		"details", rec.Details)

	if h.indexer == nil || !models.ReindexSubjects[rec.Subject] {
		return nil
	}

	id, err := bson.ObjectIDFromHex(rec.EventID)
	if err != nil {
		// битая запись, повтор не поможет
		log.Error("Audit record without valid event id", "subject", rec.Subject, "event_id", rec.EventID)
		return nil
	}

	event, err := h.events.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return h.indexer.DeleteEvent(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load event %s: %w", rec.EventID, err)
	}
	if err := h.indexer.IndexEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to index event %s: %w", rec.EventID, err)
	}
	log.Debug("Event re-indexed", "event_id", rec.EventID, "subject", rec.Subject)
	return nil
}

// HandleMsg adapts Handle to a manual-ack subscription. Failed records are
// left unacked and redelivered after AckWait.
func (h *Handlers) HandleMsg(m *stan.Msg) {
	var rec models.AuditRecord
	if err := json.Unmarshal(m.Data, &rec); err != nil {
		logger.Get().Error("Failed to unmarshal audit record", "subject", m.Subject, "error", err)
		metrics.RecordAuditConsumed(m.Subject, err)
		_ = m.Ack()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err := h.Handle(ctx, rec)
	metrics.RecordAuditConsumed(rec.Subject, err)
	if err != nil {
		logger.Get().Error("Failed to handle audit record",
			"subject", rec.Subject, "event_id", rec.EventID, "redelivered", m.Redelivered, "error", err)
		return
	}

	if err := m.Ack(); err != nil {
		logger.Get().Error("Failed to ack audit record", "subject", rec.Subject, "error", err)
	}
}
