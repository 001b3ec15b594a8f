package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/events"
)

// ProjectionHandler replays change events into a read-only copy of every
// session's activity list.
type ProjectionHandler struct {
	mu       sync.RWMutex
	sessions map[domain.SessionKey][]domain.Activity
	logger   *slog.Logger
}

// NewProjectionHandler constructs an empty projection.
func NewProjectionHandler(logger *slog.Logger) *ProjectionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectionHandler{
		sessions: make(map[domain.SessionKey][]domain.Activity),
		logger:   logger,
	}
}

// Handle applies one event. Replays are harmless: an add for a known id is
// treated as an update and a delete for an unknown id is ignored.
func (h *ProjectionHandler) Handle(_ context.Context, msg Message) error {
	var payload events.ActivityChanged
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
	}
	if payload.ActivityID == "" {
		return fmt.Errorf("%s payload without activity_id", msg.EventType)
	}

	key := domain.SessionKey{TenantID: payload.TenantID, Subject: payload.Subject}
	activity := domain.Activity{
		ID:       payload.ActivityID,
		Type:     payload.Type,
		Duration: payload.Duration,
		Calories: payload.Calories,
	}

	h.mu.Lock()
	list := h.sessions[key]
	switch msg.EventType {
	case events.TypeActivityAdded, events.TypeActivityUpdated:
		list = upsert(list, activity)
	case events.TypeActivityDeleted:
		list = remove(list, activity.ID)
	default:
		h.mu.Unlock()
		return fmt.Errorf("unknown event type %q", msg.EventType)
	}
	if len(list) == 0 {
		delete(h.sessions, key)
	} else {
		h.sessions[key] = list
	}
	projectedSessionsGauge.Set(float64(len(h.sessions)))
	h.mu.Unlock()

	h.logger.Info("projection updated",
		slog.String("session", key.String()),
		slog.String("event_type", msg.EventType),
		slog.String("activity", activity.Label()),
		slog.Int("activities", len(list)),
	)
	return nil
}

// Activities returns the projected list for a session in display order.
func (h *ProjectionHandler) Activities(key domain.SessionKey) []domain.Activity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.sessions[key]
	out := make([]domain.Activity, len(list))
	copy(out, list)
	return out
}

func upsert(list []domain.Activity, a domain.Activity) []domain.Activity {
	for i := range list {
		if list[i].ID == a.ID {
			out := make([]domain.Activity, len(list))
			copy(out, list)
			out[i] = a
			return out
		}
	}
	out := make([]domain.Activity, len(list), len(list)+1)
	copy(out, list)
	return append(out, a)
}

func remove(list []domain.Activity, id string) []domain.Activity {
	out := make([]domain.Activity, 0, len(list))
	for _, a := range list {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
