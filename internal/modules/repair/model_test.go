// README: State machine transition table tests (no database).
package repair

import (
	"testing"

	"pedalfix/internal/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusPending, StatusMatched, true},
		{StatusMatched, StatusAccepted, true},
		{StatusMatched, StatusBooked, true},
		{StatusAccepted, StatusBooked, true},
		{StatusBooked, StatusCompleted, true},
		// decline and rematch
		{StatusMatched, StatusDeclined, true},
		{StatusDeclined, StatusMatched, true},
		// cancels
		{StatusPending, StatusCancelled, true},
		{StatusMatched, StatusCancelled, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusBooked, StatusCancelled, true},
		{StatusDeclined, StatusCancelled, true},
		// invalid: terminal states have no outgoing transitions
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusMatched, false},
		{StatusCancelled, StatusPending, false},
		// invalid: skipping states
		{StatusPending, StatusAccepted, false},
		{StatusPending, StatusBooked, false},
		{StatusPending, StatusCompleted, false},
		{StatusAccepted, StatusCompleted, false},
		{StatusDeclined, StatusAccepted, false},
		{StatusDeclined, StatusBooked, false},
		// invalid: moving backwards
		{StatusAccepted, StatusMatched, false},
		{StatusBooked, StatusMatched, false},
		{StatusBooked, StatusAccepted, false},
		// idempotence guard: no self-loops
		{StatusMatched, StatusMatched, false},
		{StatusAccepted, StatusAccepted, false},
		{StatusBooked, StatusBooked, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestHasFixer(t *testing.T) {
	r := &Repair{}
	if r.HasFixer() {
		t.Error("expected no fixer on empty repair")
	}
	f := types.ID("f1")
	r.FixerID = &f
	if !r.HasFixer() {
		t.Error("expected fixer to be set")
	}
}
