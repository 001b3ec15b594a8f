package consumer

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DeadLetterSuffix is appended to the source topic to name its dead-letter topic.
const DeadLetterSuffix = ".dlq"

// Headers added to a parked record.
const (
	HeaderDLQReason   = "dlq_reason"
	HeaderDLQAttempts = "dlq_attempts"
)

const maxRetryDelay = 30 * time.Second

// DeadLetterWriter is the subset of feed.KafkaProducer used to park failed records.
type DeadLetterWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

type deadLetter struct {
	writer      DeadLetterWriter
	maxAttempts int
	baseDelay   time.Duration
}

// WithDeadLetter retries a failing handler up to maxAttempts times with
// exponential backoff, then forwards the record to its dead-letter topic and
// commits it.
func WithDeadLetter(writer DeadLetterWriter, maxAttempts int, baseDelay time.Duration) Option {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay < 0 {
		baseDelay = 0
	}
	return func(p *Processor) {
		p.deadLetter = &deadLetter{writer: writer, maxAttempts: maxAttempts, baseDelay: baseDelay}
	}
}

// backoffDelay doubles per attempt, capped at maxRetryDelay.
func (d *deadLetter) backoffDelay(attempt int) time.Duration {
	delay := d.baseDelay
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

// park copies the original record to the dead-letter topic with the failure attached.
func (d *deadLetter) park(ctx context.Context, msg kafka.Message, attempts int, reason error) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+2)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderDLQReason, Value: []byte(reason.Error())},
		kafka.Header{Key: HeaderDLQAttempts, Value: []byte(strconv.Itoa(attempts))},
	)
	return d.writer.WriteMessages(ctx, msg.Topic+DeadLetterSuffix, kafka.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Time:    msg.Time,
		Headers: headers,
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
