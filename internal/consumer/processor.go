// Package consumer reads the ledger change feed back from Kafka.
package consumer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/fitnesstracker/internal/feed"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a feed record.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	Key           string
	EventType     string
	TenantID      string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader     Reader
	handler    Handler
	logger     *slog.Logger
	deadLetter *deadLetter
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  slog.Default().With(slog.String("component", "consumer")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes messages until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Error("fetch failed", slog.Any("error", err))
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Error("decode failed",
				slog.String("topic", msg.Topic),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Any("error", decodeErr),
			)
			recordDecodeError(msg.Topic)
			// Malformed records are committed so they cannot block the partition.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Error("commit after decode failure", slog.Any("error", commitErr))
			}
			continue
		}

		if handleErr := p.handle(ctx, msg, event); handleErr != nil {
			if errors.Is(handleErr, context.Canceled) || errors.Is(handleErr, context.DeadlineExceeded) {
				return handleErr
			}
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Error("commit failed", slog.Any("error", commitErr))
		} else {
			recordProcessed(event)
		}
	}
}

// handle runs the handler. Without a dead-letter option a failure leaves the
// record uncommitted; with one the handler is retried and the record parked
// once attempts run out. A nil return means the record may be committed.
func (p *Processor) handle(ctx context.Context, raw kafka.Message, event Message) error {
	attempts := 1
	if p.deadLetter != nil {
		attempts = p.deadLetter.maxAttempts
	}

	var handleErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			recordRetry(event)
			if err := sleepContext(ctx, p.deadLetter.backoffDelay(attempt-1)); err != nil {
				return err
			}
		}
		if handleErr = p.handler.Handle(ctx, event); handleErr == nil {
			return nil
		}
		p.logger.Error("handler failed",
			slog.String("event_type", event.EventType),
			slog.String("tenant_id", event.TenantID),
			slog.Int("attempt", attempt),
			slog.Any("error", handleErr),
		)
		recordHandlerError(event)
	}

	if p.deadLetter == nil {
		return handleErr
	}
	if err := p.deadLetter.park(ctx, raw, attempts, handleErr); err != nil {
		p.logger.Error("dead-letter write failed",
			slog.String("event_type", event.EventType),
			slog.Int64("offset", event.Offset),
			slog.Any("error", err),
		)
		return err
	}
	recordDeadLettered(event)
	p.logger.Warn("record dead-lettered",
		slog.String("dlq_topic", raw.Topic+DeadLetterSuffix),
		slog.String("event_type", event.EventType),
		slog.Int64("offset", event.Offset),
	)
	return nil
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) < 5 {
		return Message{}, fmt.Errorf("invalid payload length: %d", len(msg.Value))
	}
	if msg.Value[0] != 0 {
		return Message{}, fmt.Errorf("unknown magic byte: %d", msg.Value[0])
	}

	eventType, ok := headerValue(msg, feed.HeaderEventType)
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	tenantID, _ := headerValue(msg, feed.HeaderTenantID)
	schemaSubject, _ := headerValue(msg, feed.HeaderSchemaSubject)

	schemaID := int(binary.BigEndian.Uint32(msg.Value[1:5]))
	payload := json.RawMessage(append([]byte(nil), msg.Value[5:]...))

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		Key:           string(msg.Key),
		EventType:     string(eventType),
		TenantID:      string(tenantID),
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
