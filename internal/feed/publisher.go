// Package feed publishes committed ledger changes to Kafka.
package feed

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/events"
)

// Header keys attached to every record.
const (
	HeaderEventType     = "event_type"
	HeaderTenantID      = "tenant_id"
	HeaderSchemaSubject = "schema_subject"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// PublisherOption configures optional Publisher behaviour.
type PublisherOption func(*Publisher)

// WithSchemaRegistry resolves schema ids through the given registry. Without
// one every record is framed with schema id 0.
func WithSchemaRegistry(registry schemaRegistrar) PublisherOption {
	return func(p *Publisher) {
		p.registry = registry
	}
}

// WithTimeout bounds how long a single Publish may take.
func WithTimeout(timeout time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.timeout = timeout
	}
}

// Publisher implements domain.ChangePublisher on top of Kafka.
type Publisher struct {
	writer   messageWriter
	registry schemaRegistrar
	topic    string
	timeout  time.Duration

	schemaMu sync.Mutex
	schemaID *int
}

// NewPublisher constructs a Publisher writing to topic.
func NewPublisher(writer messageWriter, topic string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		writer:  writer,
		topic:   topic,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subject is the schema registry subject used for the topic's values.
func (p *Publisher) Subject() string {
	return p.topic + "-value"
}

// Publish encodes the change and writes it keyed by session so a session's
// changes stay ordered.
func (p *Publisher) Publish(ctx context.Context, event domain.ChangeEvent) error {
	start := time.Now()
	defer func() { publishDuration.Observe(time.Since(start).Seconds()) }()

	eventType := string(event.Change.Kind)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg, err := p.encode(ctx, event)
	if err != nil {
		failedCounter.WithLabelValues(eventType).Inc()
		return err
	}

	if err := p.writer.WriteMessages(ctx, p.topic, msg); err != nil {
		failedCounter.WithLabelValues(eventType).Inc()
		return fmt.Errorf("feed: write %s: %w", eventType, err)
	}
	publishedCounter.WithLabelValues(eventType).Inc()
	return nil
}

func (p *Publisher) encode(ctx context.Context, event domain.ChangeEvent) (kafka.Message, error) {
	payload, err := json.Marshal(toPayload(event))
	if err != nil {
		return kafka.Message{}, fmt.Errorf("feed: marshal: %w", err)
	}

	schemaID, err := p.resolveSchemaID(ctx)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("feed: schema: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.Session.String()),
		Value: EncodeWireFormat(schemaID, payload),
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.Change.Kind)},
			{Key: HeaderTenantID, Value: []byte(event.Session.TenantID)},
			{Key: HeaderSchemaSubject, Value: []byte(p.Subject())},
		},
	}, nil
}

func (p *Publisher) resolveSchemaID(ctx context.Context) (int, error) {
	if p.registry == nil {
		return 0, nil
	}

	p.schemaMu.Lock()
	defer p.schemaMu.Unlock()
	if p.schemaID != nil {
		return *p.schemaID, nil
	}

	id, err := p.registry.EnsureSchema(ctx, p.Subject(), activityChangedSchema)
	if err != nil {
		return 0, err
	}
	p.schemaID = &id
	return id, nil
}

func toPayload(event domain.ChangeEvent) events.ActivityChanged {
	a := event.Change.Activity
	return events.ActivityChanged{
		EventType:  string(event.Change.Kind),
		TenantID:   event.Session.TenantID,
		Subject:    event.Session.Subject,
		ActivityID: a.ID,
		Type:       a.Type,
		Duration:   a.Duration,
		Calories:   a.Calories,
		Position:   event.Change.Position,
		OccurredAt: event.OccurredAt,
	}
}

// EncodeWireFormat applies Confluent framing: magic byte 0, big-endian schema id, payload.
func EncodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}
