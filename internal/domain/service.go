// Package domain defines the activity ledger: validation, list reconciliation,
// and the service that hosts one ledger per session.
package domain

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"example.com/fitnesstracker/internal/observability"
)

// SessionKey identifies the owner of a ledger.
type SessionKey struct {
	TenantID string
	Subject  string
}

func (k SessionKey) String() string {
	return k.TenantID + "/" + k.Subject
}

// SessionStore hands out the ledger for a session, creating it on first use.
type SessionStore interface {
	Ledger(key SessionKey) *Ledger
}

// ChangeEvent is a committed ledger change annotated with its session.
type ChangeEvent struct {
	Session    SessionKey
	Change     Change
	OccurredAt time.Time
}

// ChangePublisher forwards committed changes to subscribers outside the process.
type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// NoopPublisher discards every change.
type NoopPublisher struct{}

// Publish performs no action.
func (NoopPublisher) Publish(context.Context, ChangeEvent) error { return nil }

// ServiceOption configures optional Service behaviour.
type ServiceOption func(*Service)

// WithLogger overrides the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source used to stamp change events.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// Service routes ledger operations to the caller's session and publishes
// committed changes.
type Service struct {
	store     SessionStore
	publisher ChangePublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(store SessionStore, publisher ChangePublisher, opts ...ServiceOption) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	s := &Service{
		store:     store,
		publisher: publisher,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View returns the current state of the session's ledger.
func (s *Service) View(ctx context.Context, key SessionKey) State {
	return s.store.Ledger(key).Snapshot()
}

// UpdateDraft applies a text-change event.
func (s *Service) UpdateDraft(ctx context.Context, key SessionKey, patch DraftPatch) State {
	return s.store.Ledger(key).UpdateDraft(patch)
}

// Submit applies the patch and submits the draft. Validation errors are
// returned as *ValidationError alongside the retained state.
func (s *Service) Submit(ctx context.Context, key SessionKey, patch DraftPatch) (Change, State, error) {
	ledger := s.store.Ledger(key)
	ledger.publishMu.Lock()
	defer ledger.publishMu.Unlock()

	change, state, err := ledger.Submit(patch)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			observability.RecordSubmission(string(verr.Kind))
		}
		return Change{}, state, err
	}

	outcome := observability.OutcomeCreated
	if change.Kind == ChangeUpdated {
		outcome = observability.OutcomeUpdated
	}
	observability.RecordSubmission(outcome)
	s.publish(ctx, key, change)
	return change, state, nil
}

// BeginEdit switches the session's draft to editing id. It reports whether
// the id matched an activity.
func (s *Service) BeginEdit(ctx context.Context, key SessionKey, id string) (State, bool) {
	state, ok := s.store.Ledger(key).BeginEdit(id)
	if ok {
		observability.RecordEditBegun()
	}
	return state, ok
}

// Delete removes id from the session's ledger. It reports whether anything was removed.
func (s *Service) Delete(ctx context.Context, key SessionKey, id string) (State, bool) {
	ledger := s.store.Ledger(key)
	ledger.publishMu.Lock()
	defer ledger.publishMu.Unlock()

	change, state, ok := ledger.Delete(id)
	if !ok {
		return state, false
	}
	observability.RecordDeletion()
	s.publish(ctx, key, change)
	return state, true
}

func (s *Service) publish(ctx context.Context, key SessionKey, change Change) {
	occurredAt := s.now().UTC()
	observability.RecordLedgerChange(occurredAt)

	event := ChangeEvent{Session: key, Change: change, OccurredAt: occurredAt}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("ledger change not published",
			slog.String("session", key.String()),
			slog.String("kind", string(change.Kind)),
			slog.String("activity_id", change.Activity.ID),
			slog.Any("error", err),
		)
	}
}
