package domain

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// ChangeKind describes a committed mutation of the activity list.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "activity.added"
	ChangeUpdated ChangeKind = "activity.updated"
	ChangeDeleted ChangeKind = "activity.deleted"
)

// Change records one committed mutation. Position is the index the activity
// occupies (or occupied, for deletions) in the list.
type Change struct {
	Kind     ChangeKind
	Activity Activity
	Position int
}

// IDGenerator produces activity identifiers. Identifiers must never repeat.
type IDGenerator func() string

// NewUUID is the default IDGenerator.
func NewUUID() string {
	return uuid.NewString()
}

// Submit validates the draft and merges the result into activities.
//
// In editing mode the activity with the draft's EditingID has its fields
// replaced in place. A marker that no longer matches any activity is ignored
// and the submission creates a new activity instead. The input slice is never
// modified.
func Submit(draft Draft, activities []Activity, newID IDGenerator) (Change, []Activity, error) {
	v, err := validate(draft)
	if err != nil {
		return Change{}, activities, err
	}

	if draft.Editing() {
		if idx := indexOf(activities, draft.EditingID); idx >= 0 {
			out := make([]Activity, len(activities))
			copy(out, activities)
			out[idx] = Activity{
				ID:       activities[idx].ID,
				Type:     v.Type,
				Duration: v.Duration,
				Calories: v.Calories,
			}
			return Change{Kind: ChangeUpdated, Activity: out[idx], Position: idx}, out, nil
		}
	}

	created := Activity{
		ID:       newID(),
		Type:     v.Type,
		Duration: v.Duration,
		Calories: v.Calories,
	}
	out := make([]Activity, len(activities), len(activities)+1)
	copy(out, activities)
	out = append(out, created)
	return Change{Kind: ChangeAdded, Activity: created, Position: len(out) - 1}, out, nil
}

// BeginEdit fills a draft from the activity with the given id and marks it as
// being edited. It reports false, and returns the draft unchanged, when no
// activity has that id.
func BeginEdit(id string, activities []Activity, draft Draft) (Draft, bool) {
	idx := indexOf(activities, id)
	if idx < 0 {
		return draft, false
	}
	a := activities[idx]
	return Draft{
		Type:      a.Type,
		Duration:  strconv.Itoa(a.Duration),
		Calories:  strconv.Itoa(a.Calories),
		EditingID: a.ID,
	}, true
}

// Delete removes the activity with the given id. When it was the one being
// edited the draft is reset. The returned bool reports whether anything was
// removed.
func Delete(id string, activities []Activity, draft Draft) (Change, []Activity, Draft, bool) {
	idx := indexOf(activities, id)
	if idx < 0 {
		return Change{}, activities, draft, false
	}
	removed := activities[idx]

	out := make([]Activity, 0, len(activities)-1)
	out = append(out, activities[:idx]...)
	out = append(out, activities[idx+1:]...)

	if draft.EditingID == id {
		draft = Draft{}
	}
	return Change{Kind: ChangeDeleted, Activity: removed, Position: idx}, out, draft, true
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator overrides the identifier source.
func WithIDGenerator(gen IDGenerator) Option {
	return func(l *Ledger) {
		l.newID = gen
	}
}

// Ledger owns the state of one session and serialises every mutation.
type Ledger struct {
	mu    sync.Mutex
	state State
	newID IDGenerator

	// publishMu is held from a committing mutation until its change is
	// published, so the feed sees a session's changes in commit order.
	publishMu sync.Mutex
}

// NewLedger constructs an empty Ledger in creating mode.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{newID: NewUUID}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Snapshot returns a copy of the current state.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone()
}

// UpdateDraft applies a text-change event to the draft.
func (l *Ledger) UpdateDraft(patch DraftPatch) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Draft = patch.Apply(l.state.Draft)
	return l.state.Clone()
}

// Submit applies the patch to the draft and submits it. On a validation error
// the patched draft is kept so the user can correct it.
func (l *Ledger) Submit(patch DraftPatch) (Change, State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.Draft = patch.Apply(l.state.Draft)
	change, activities, err := Submit(l.state.Draft, l.state.Activities, l.newID)
	if err != nil {
		return Change{}, l.state.Clone(), err
	}
	l.state.Activities = activities
	l.state.Draft = Draft{}
	return change, l.state.Clone(), nil
}

// BeginEdit switches the draft to editing the given activity. Unknown ids are ignored.
func (l *Ledger) BeginEdit(id string) (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	draft, ok := BeginEdit(id, l.state.Activities, l.state.Draft)
	l.state.Draft = draft
	return l.state.Clone(), ok
}

// Delete removes an activity. Unknown ids are ignored.
func (l *Ledger) Delete(id string) (Change, State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	change, activities, draft, ok := Delete(id, l.state.Activities, l.state.Draft)
	l.state.Activities = activities
	l.state.Draft = draft
	return change, l.state.Clone(), ok
}
