package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func sequentialIDs() IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("act-%d", n)
	}
}

func text(s string) *string { return &s }

func fill(typ, duration, calories string) DraftPatch {
	return DraftPatch{Type: text(typ), Duration: text(duration), Calories: text(calories)}
}

func TestSubmitCreatesWithDefaultCalories(t *testing.T) {
	change, out, err := Submit(Draft{Type: "Running", Duration: "20"}, nil, sequentialIDs())
	require.NoError(t, err)
	require.Equal(t, ChangeAdded, change.Kind)
	require.Equal(t, []Activity{{ID: "act-1", Type: "Running", Duration: 20, Calories: 200}}, out)
	require.Equal(t, "Running - 20 min - 200 cal", out[0].Label())
}

func TestSubmitKeepsProvidedCalories(t *testing.T) {
	_, out, err := Submit(Draft{Type: "Walking", Duration: "40", Calories: "288"}, nil, sequentialIDs())
	require.NoError(t, err)
	require.Equal(t, 288, out[0].Calories)
}

func TestSubmitDoesNotMutateInput(t *testing.T) {
	in := []Activity{{ID: "a", Type: "Yoga", Duration: 30, Calories: 300}}
	_, out, err := Submit(Draft{Type: "Swim", Duration: "15", EditingID: "a"}, in, sequentialIDs())
	require.NoError(t, err)
	require.Equal(t, "Yoga", in[0].Type)
	require.Equal(t, "Swim", out[0].Type)
}

func TestSubmitWithStaleEditingIDCreates(t *testing.T) {
	in := []Activity{{ID: "a", Type: "Yoga", Duration: 30, Calories: 300}}
	change, out, err := Submit(Draft{Type: "Row", Duration: "12", EditingID: "gone"}, in, sequentialIDs())
	require.NoError(t, err)
	require.Equal(t, ChangeAdded, change.Kind)
	require.Len(t, out, 2)
	require.Equal(t, "act-1", out[1].ID)
	require.Equal(t, 1, change.Position)
}

func TestBeginEditUnknownIDIsNoop(t *testing.T) {
	draft := Draft{Type: "half typed"}
	got, ok := BeginEdit("missing", []Activity{{ID: "a"}}, draft)
	require.False(t, ok)
	require.Equal(t, draft, got)
}

func TestDeleteUnknownIDIsNoop(t *testing.T) {
	in := []Activity{{ID: "a", Type: "Yoga", Duration: 30, Calories: 300}}
	_, out, draft, ok := Delete("missing", in, Draft{EditingID: "a", Type: "Yoga"})
	require.False(t, ok)
	require.Equal(t, in, out)
	require.Equal(t, "a", draft.EditingID)
}

func TestLedgerAddClearsDraft(t *testing.T) {
	l := NewLedger(WithIDGenerator(sequentialIDs()))

	l.UpdateDraft(fill("Running", "20", ""))
	change, state, err := l.Submit(DraftPatch{})
	require.NoError(t, err)
	require.Equal(t, ChangeAdded, change.Kind)
	require.Equal(t, Draft{}, state.Draft)
	require.Equal(t, SubmitLabelAdd, state.Draft.SubmitLabel())
	require.Len(t, state.Activities, 1)
}

func TestLedgerValidationFailureKeepsDraftAndList(t *testing.T) {
	l := NewLedger(WithIDGenerator(sequentialIDs()))
	_, _, err := l.Submit(fill("Cycling", "30", ""))
	require.NoError(t, err)

	_, state, err := l.Submit(fill("Cycling", "30", "-20"))
	require.ErrorIs(t, err, ErrInvalidCalories)
	require.Equal(t, Draft{Type: "Cycling", Duration: "30", Calories: "-20"}, state.Draft)
	require.Len(t, state.Activities, 1)
	require.Equal(t, l.Snapshot(), state)
}

func TestLedgerEditChangingOneFieldPreservesOthers(t *testing.T) {
	l := NewLedger(WithIDGenerator(sequentialIDs()))
	_, _, err := l.Submit(fill("Swimming", "45", "512"))
	require.NoError(t, err)
	_, _, err = l.Submit(fill("Yoga", "30", ""))
	require.NoError(t, err)

	state, ok := l.BeginEdit("act-1")
	require.True(t, ok)
	require.Equal(t, Draft{Type: "Swimming", Duration: "45", Calories: "512", EditingID: "act-1"}, state.Draft)
	require.Equal(t, SubmitLabelUpdate, state.Draft.SubmitLabel())
	require.Equal(t, ModeEditing, state.Draft.Mode())

	change, state, err := l.Submit(DraftPatch{Duration: text("50")})
	require.NoError(t, err)
	require.Equal(t, ChangeUpdated, change.Kind)
	require.Equal(t, 0, change.Position)
	require.Equal(t, []Activity{
		{ID: "act-1", Type: "Swimming", Duration: 50, Calories: 512},
		{ID: "act-2", Type: "Yoga", Duration: 30, Calories: 300},
	}, state.Activities)
	require.Equal(t, Draft{}, state.Draft)
	require.Equal(t, ModeCreating, state.Draft.Mode())
}

func TestLedgerEditWithClearedCaloriesRederives(t *testing.T) {
	l := NewLedger(WithIDGenerator(sequentialIDs()))
	_, _, err := l.Submit(fill("Hiking", "40", "450"))
	require.NoError(t, err)

	_, ok := l.BeginEdit("act-1")
	require.True(t, ok)
	_, state, err := l.Submit(DraftPatch{Calories: text("")})
	require.NoError(t, err)
	require.Equal(t, 400, state.Activities[0].Calories)
	require.Equal(t, "act-1", state.Activities[0].ID)
}

func TestLedgerEditTrimsType(t *testing.T) {
	l := NewLedger(WithIDGenerator(sequentialIDs()))
	_, _, err := l.Submit(fill("Run", "10", ""))
	require.NoError(t, err)
	l.BeginEdit("act-1")

	_, state, err := l.Submit(DraftPatch{Type: text("  Trail Run  ")})
	require.NoError(t, err)
	require.Equal(t, "Trail Run", state.Activities[0].Type)
}

func TestLedgerDeleteNonEditedLeavesDraft(t *testing.T) {
	l := NewLedger(WithIDGenerator(sequentialIDs()))
	_, _, err := l.Submit(fill("Run", "10", ""))
	require.NoError(t, err)
	_, _, err = l.Submit(fill("Row", "20", ""))
	require.NoError(t, err)

	l.BeginEdit("act-1")
	l.UpdateDraft(DraftPatch{Duration: text("15")})

	change, state, ok := l.Delete("act-2")
	require.True(t, ok)
	require.Equal(t, ChangeDeleted, change.Kind)
	require.Equal(t, 1, change.Position)
	require.Equal(t, []Activity{{ID: "act-1", Type: "Run", Duration: 10, Calories: 100}}, state.Activities)
	require.Equal(t, Draft{Type: "Run", Duration: "15", Calories: "100", EditingID: "act-1"}, state.Draft)
}

func TestLedgerDeleteEditedResetsDraft(t *testing.T) {
	l := NewLedger(WithIDGenerator(sequentialIDs()))
	_, _, err := l.Submit(fill("Run", "10", ""))
	require.NoError(t, err)

	l.BeginEdit("act-1")
	_, state, ok := l.Delete("act-1")
	require.True(t, ok)
	require.Empty(t, state.Activities)
	require.Equal(t, Draft{}, state.Draft)
	require.Equal(t, SubmitLabelAdd, state.Draft.SubmitLabel())
}

func TestLedgerIDsAreNeverReused(t *testing.T) {
	l := NewLedger()
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		change, _, err := l.Submit(fill("Run", "10", ""))
		require.NoError(t, err)
		_, dup := seen[change.Activity.ID]
		require.False(t, dup)
		seen[change.Activity.ID] = struct{}{}
		_, _, ok := l.Delete(change.Activity.ID)
		require.True(t, ok)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	l := NewLedger(WithIDGenerator(sequentialIDs()))
	_, _, err := l.Submit(fill("Run", "10", ""))
	require.NoError(t, err)

	snap := l.Snapshot()
	snap.Activities[0].Type = "tampered"
	require.Equal(t, "Run", l.Snapshot().Activities[0].Type)
}
