package domain

import "fmt"

// Activity is a single logged exercise record.
type Activity struct {
	ID       string
	Type     string
	Duration int
	Calories int
}

// Label renders the activity the way the list view shows it.
func (a Activity) Label() string {
	return fmt.Sprintf("%s - %d min - %d cal", a.Type, a.Duration, a.Calories)
}

// Draft is the unsaved form state: three raw text fields plus the id being edited.
// EditingID is a lookup key into the activity list, never an owning reference.
type Draft struct {
	Type      string
	Duration  string
	Calories  string
	EditingID string
}

// Editing reports whether the draft targets an existing activity.
func (d Draft) Editing() bool {
	return d.EditingID != ""
}

// Mode names the draft mode.
type Mode string

const (
	ModeCreating Mode = "creating"
	ModeEditing  Mode = "editing"
)

// Mode returns the current draft mode.
func (d Draft) Mode() Mode {
	if d.Editing() {
		return ModeEditing
	}
	return ModeCreating
}

// Submit control labels.
const (
	SubmitLabelAdd    = "Add Activity"
	SubmitLabelUpdate = "Update Activity"
)

// SubmitLabel reflects the mode on the submit control.
func (d Draft) SubmitLabel() string {
	if d.Editing() {
		return SubmitLabelUpdate
	}
	return SubmitLabelAdd
}

// Input placeholders shown next to the three draft fields.
const (
	PlaceholderType     = "Activity Type (e.g., Running)"
	PlaceholderDuration = "Duration (minutes)"
	PlaceholderCalories = "Calories (optional, default: duration * 10)"
)

// DraftPatch carries a text-change event. Nil fields are left untouched.
type DraftPatch struct {
	Type     *string
	Duration *string
	Calories *string
}

// Apply returns the draft with the patched fields replaced. The editing marker is kept.
func (p DraftPatch) Apply(d Draft) Draft {
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.Duration != nil {
		d.Duration = *p.Duration
	}
	if p.Calories != nil {
		d.Calories = *p.Calories
	}
	return d
}

// Empty reports whether the patch changes nothing.
func (p DraftPatch) Empty() bool {
	return p.Type == nil && p.Duration == nil && p.Calories == nil
}

// State is the single authoritative record for one ledger session.
type State struct {
	Activities []Activity
	Draft      Draft
}

// Clone returns a deep copy safe to hand to readers outside the ledger lock.
func (s State) Clone() State {
	out := State{Draft: s.Draft}
	if s.Activities != nil {
		out.Activities = make([]Activity, len(s.Activities))
		copy(out.Activities, s.Activities)
	}
	return out
}

func indexOf(activities []Activity, id string) int {
	for i, a := range activities {
		if a.ID == id {
			return i
		}
	}
	return -1
}
