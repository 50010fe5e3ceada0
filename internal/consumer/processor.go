// Package consumer reads progression events back from Kafka and hands them to a Handler.
package consumer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Header keys written by the outbox dispatcher.
const (
	HeaderEventType     = "event_type"
	HeaderUserID        = "user_id"
	HeaderSchemaSubject = "schema_subject"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a Kafka record emitted by the outbox dispatcher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	UserID        string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *logrus.Entry) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRetry sets how many times a record is handed to the Handler before the processor
// gives up, and the delay before the first retry. The delay doubles per attempt.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(p *Processor) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

const maxRetryDelay = 10 * time.Second

// Processor pulls records in partition order, decodes them, hands them to a Handler and
// commits. A record is committed only after it was handled, or when it can never be
// decoded. When the Handler keeps failing, Run returns instead of committing past the
// record, so the group redelivers it after a restart.
type Processor struct {
	reader   Reader
	handler  Handler
	logger   *logrus.Entry
	attempts int
	backoff  time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:   reader,
		handler:  handler,
		logger:   logrus.NewEntry(logrus.StandardLogger()).WithField("component", "consumer"),
		attempts: 5,
		backoff:  250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until ctx is cancelled or a record exhausts its handler attempts.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.WithError(err).Warn("fetch failed")
			continue
		}

		if err := p.process(ctx, record); err != nil {
			return err
		}
	}
}

func (p *Processor) process(ctx context.Context, record kafka.Message) error {
	log := p.logger.WithFields(logrus.Fields{
		"topic":     record.Topic,
		"partition": record.Partition,
		"offset":    record.Offset,
	})

	msg, err := decodeMessage(record)
	if err != nil {
		// undecodable records would block the partition forever
		log.WithError(err).Warn("skipping malformed record")
		recordFailure(record.Topic, stageDecode)
		p.commit(ctx, log, record)
		return nil
	}

	log = log.WithFields(logrus.Fields{"event_type": msg.EventType, "user_id": msg.UserID})
	if err := p.handle(ctx, log, msg); err != nil {
		return fmt.Errorf("handle %s at %s[%d]@%d: %w", msg.EventType, record.Topic, record.Partition, record.Offset, err)
	}

	if p.commit(ctx, log, record) {
		recordHandled(msg, time.Now())
	}
	return nil
}

func (p *Processor) handle(ctx context.Context, log *logrus.Entry, msg Message) error {
	delay := p.backoff
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = p.handler.Handle(ctx, msg); err == nil {
			return nil
		}
		recordFailure(msg.Topic, stageHandle)
		log.WithError(err).WithField("attempt", attempt).Warn("handler failed")
		if attempt == p.attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
	return err
}

func (p *Processor) commit(ctx context.Context, log *logrus.Entry, record kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, record); err != nil {
		log.WithError(err).Error("commit failed")
		recordFailure(record.Topic, stageCommit)
		return false
	}
	return true
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) < 5 {
		return Message{}, fmt.Errorf("invalid payload length: %d", len(msg.Value))
	}

	if msg.Value[0] != 0 {
		return Message{}, fmt.Errorf("unexpected magic byte: %d", msg.Value[0])
	}

	eventType, ok := headerValue(msg, HeaderEventType)
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	userID, ok := headerValue(msg, HeaderUserID)
	if !ok {
		// records are keyed by user
		userID = msg.Key
	}
	schemaSubject, _ := headerValue(msg, HeaderSchemaSubject)

	schemaID := int(binary.BigEndian.Uint32(msg.Value[1:5]))
	payload := json.RawMessage(append([]byte(nil), msg.Value[5:]...))

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		EventType:     string(eventType),
		UserID:        string(userID),
		SchemaSubject: string(schemaSubject),
		SchemaID:      schemaID,
		Payload:       payload,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}

// Decode unmarshals the JSON payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}
