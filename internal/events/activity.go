// Package events defines the ledger change payloads shared by the feed publisher and consumer.
package events

import "time"

// Event types carried in the event_type header.
const (
	TypeActivityAdded   = "activity.added"
	TypeActivityUpdated = "activity.updated"
	TypeActivityDeleted = "activity.deleted"
)

// ActivityChanged is emitted for every committed ledger mutation.
type ActivityChanged struct {
	EventType  string    `json:"event_type"`
	TenantID   string    `json:"tenant_id"`
	Subject    string    `json:"subject"`
	ActivityID string    `json:"activity_id"`
	Type       string    `json:"type"`
	Duration   int       `json:"duration"`
	Calories   int       `json:"calories"`
	Position   int       `json:"position"`
	OccurredAt time.Time `json:"occurred_at"`
}
