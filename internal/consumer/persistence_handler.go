package consumer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"example.com/kaitrack/internal/events"
	"example.com/kaitrack/internal/observability"
)

// PersistenceHandler appends consumed events to progression_event_log.
// Replays of the same topic/partition/offset are ignored.
type PersistenceHandler struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

// NewPersistenceHandler constructs a handler backed by the provided pool.
func NewPersistenceHandler(pool *pgxpool.Pool, log *logrus.Entry) *PersistenceHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PersistenceHandler{pool: pool, log: log.WithField("component", "event_log")}
}

// Handle stores the event payload in the progression_event_log table.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType == events.TypeTierPromoted {
		var promoted events.TierPromoted
		if err := msg.Decode(&promoted); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		h.log.WithFields(logrus.Fields{
			"user_id": msg.UserID,
			"from":    promoted.PreviousTier,
			"to":      promoted.CurrentTier,
		}).Info("tier promotion received")
	}

	tag, err := h.pool.Exec(ctx,
		`INSERT INTO progression_event_log (event_type, user_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT ON CONSTRAINT progression_event_log_position DO NOTHING`,
		msg.EventType,
		msg.UserID,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		observability.RecordProgressLogged(msg.Timestamp)
	}
	return nil
}
