package api

import "example.com/fitnesstracker/internal/domain"

// DraftRequest is a text-change event. Omitted fields keep their current value.
type DraftRequest struct {
	Type     *string `json:"type,omitempty"`
	Duration *string `json:"duration,omitempty"`
	Calories *string `json:"calories,omitempty"`
}

func (r DraftRequest) patch() domain.DraftPatch {
	return domain.DraftPatch{Type: r.Type, Duration: r.Duration, Calories: r.Calories}
}

// DraftView mirrors the three form fields.
type DraftView struct {
	Type     string `json:"type"`
	Duration string `json:"duration"`
	Calories string `json:"calories"`
}

// PlaceholderView carries the hint text for each form field.
type PlaceholderView struct {
	Type     string `json:"type"`
	Duration string `json:"duration"`
	Calories string `json:"calories"`
}

// ActivityView is one rendered list item.
type ActivityView struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Duration int    `json:"duration"`
	Calories int    `json:"calories"`
	Label    string `json:"label"`
}

// LedgerView is everything a client needs to render the screen.
type LedgerView struct {
	Draft        DraftView       `json:"draft"`
	EditingID    string          `json:"editing_id,omitempty"`
	Mode         string          `json:"mode"`
	SubmitLabel  string          `json:"submit_label"`
	Placeholders PlaceholderView `json:"placeholders"`
	Items        []ActivityView  `json:"items"`
}

// SubmitResponse is returned by a successful submit.
type SubmitResponse struct {
	Activity ActivityView `json:"activity"`
	Ledger   LedgerView   `json:"ledger"`
}

// ValidationErrorResponse is returned when the draft fails validation. The
// ledger view shows the draft exactly as it was submitted.
type ValidationErrorResponse struct {
	Type   string     `json:"type"`
	Code   string     `json:"code"`
	Field  string     `json:"field"`
	Title  string     `json:"title"`
	Detail string     `json:"detail"`
	Ledger LedgerView `json:"ledger"`
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ID:       a.ID,
		Type:     a.Type,
		Duration: a.Duration,
		Calories: a.Calories,
		Label:    a.Label(),
	}
}

func toLedgerView(state domain.State) LedgerView {
	items := make([]ActivityView, 0, len(state.Activities))
	for _, a := range state.Activities {
		items = append(items, toActivityView(a))
	}
	return LedgerView{
		Draft: DraftView{
			Type:     state.Draft.Type,
			Duration: state.Draft.Duration,
			Calories: state.Draft.Calories,
		},
		EditingID:   state.Draft.EditingID,
		Mode:        string(state.Draft.Mode()),
		SubmitLabel: state.Draft.SubmitLabel(),
		Placeholders: PlaceholderView{
			Type:     domain.PlaceholderType,
			Duration: domain.PlaceholderDuration,
			Calories: domain.PlaceholderCalories,
		},
		Items: items,
	}
}
