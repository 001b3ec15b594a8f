package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/events"
	"example.com/fitnesstracker/internal/feed"
	"example.com/fitnesstracker/internal/session"
)

func changeMessage(t *testing.T, payload events.ActivityChanged) Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return Message{Topic: "ledger_events", EventType: payload.EventType, TenantID: payload.TenantID, Payload: raw}
}

func TestProjectionReplaysLedgerChanges(t *testing.T) {
	ctx := context.Background()
	h := NewProjectionHandler(testLogger(t))
	key := domain.SessionKey{TenantID: "t", Subject: "u"}

	apply := func(eventType, id, typ string, duration, calories int) {
		require.NoError(t, h.Handle(ctx, changeMessage(t, events.ActivityChanged{
			EventType: eventType, TenantID: "t", Subject: "u",
			ActivityID: id, Type: typ, Duration: duration, Calories: calories,
		})))
	}

	apply(events.TypeActivityAdded, "a", "Running", 20, 200)
	apply(events.TypeActivityAdded, "b", "Walking", 40, 288)
	apply(events.TypeActivityAdded, "c", "Yoga", 30, 300)
	apply(events.TypeActivityUpdated, "a", "Running", 25, 200)
	apply(events.TypeActivityDeleted, "b", "Walking", 40, 288)
	apply(events.TypeActivityAdded, "a", "Running", 25, 200)

	require.Equal(t, []domain.Activity{
		{ID: "a", Type: "Running", Duration: 25, Calories: 200},
		{ID: "c", Type: "Yoga", Duration: 30, Calories: 300},
	}, h.Activities(key))

	require.Empty(t, h.Activities(domain.SessionKey{TenantID: "t", Subject: "other"}))
}

func TestProjectionRejectsBadPayloads(t *testing.T) {
	ctx := context.Background()
	h := NewProjectionHandler(testLogger(t))

	err := h.Handle(ctx, Message{EventType: events.TypeActivityAdded, Payload: json.RawMessage(`not json`)})
	require.Error(t, err)

	err = h.Handle(ctx, changeMessage(t, events.ActivityChanged{EventType: events.TypeActivityAdded}))
	require.ErrorContains(t, err, "without activity_id")

	err = h.Handle(ctx, changeMessage(t, events.ActivityChanged{EventType: "activity.archived", ActivityID: "x"}))
	require.ErrorContains(t, err, "unknown event type")
}

// projectingWriter stands in for the broker: every record written is decoded
// and applied to the projection. Adds are slowed down.
type projectingWriter struct {
	projection *ProjectionHandler
	addDelay   time.Duration
}

func (w *projectingWriter) WriteMessages(ctx context.Context, _ string, msgs ...kafka.Message) error {
	for _, raw := range msgs {
		msg, err := decodeMessage(raw)
		if err != nil {
			return err
		}
		if msg.EventType == events.TypeActivityAdded {
			time.Sleep(w.addDelay)
		}
		if err := w.projection.Handle(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func TestProjectionFollowsLedgerUnderConcurrentRequests(t *testing.T) {
	ctx := context.Background()
	projection := NewProjectionHandler(testLogger(t))
	writer := &projectingWriter{projection: projection, addDelay: 100 * time.Millisecond}
	svc := domain.NewService(session.NewInMemoryStore(), feed.NewPublisher(writer, "ledger_events"))
	key := domain.SessionKey{TenantID: "t", Subject: "u"}
	text := func(s string) *string { return &s }

	done := make(chan error, 1)
	go func() {
		_, _, err := svc.Submit(ctx, key, domain.DraftPatch{Type: text("Run"), Duration: text("10")})
		done <- err
	}()

	var id string
	require.Eventually(t, func() bool {
		activities := svc.View(ctx, key).Activities
		if len(activities) == 0 {
			return false
		}
		id = activities[0].ID
		return true
	}, time.Second, time.Millisecond)

	_, ok := svc.Delete(ctx, key, id)
	require.True(t, ok)
	require.NoError(t, <-done)

	require.Empty(t, svc.View(ctx, key).Activities)
	require.Empty(t, projection.Activities(key))
}
