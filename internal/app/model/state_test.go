package model

import "testing"

func TestCanAdvance(t *testing.T) {
	cases := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"pending to processing", StatePending, StateProcessing, true},
		{"pending to confirming", StatePending, StateConfirming, true},
		{"pending to completed", StatePending, StateCompleted, true},
		{"confirming to confirmed", StateConfirming, StateConfirmed, true},
		{"confirmed to completed", StateConfirmed, StateCompleted, true},
		{"same state", StateConfirming, StateConfirming, false},
		{"backward", StateConfirmed, StatePending, false},
		{"backward one step", StateConfirming, StateProcessing, false},
		{"abort from pending", StatePending, StateCancelled, true},
		{"abort from confirmed", StateConfirmed, StateFailed, true},
		{"refund from confirming", StateConfirming, StateRefunded, true},
		{"nothing after completed", StateCompleted, StateFailed, false},
		{"nothing after cancelled", StateCancelled, StateConfirming, false},
		{"nothing after failed", StateFailed, StateCompleted, false},
		{"nothing after refunded", StateRefunded, StatePending, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAdvance(tc.from, tc.to); got != tc.want {
				t.Errorf("CanAdvance(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestStateTerminal(t *testing.T) {
	terminal := []State{StateCompleted, StateCancelled, StateFailed, StateRefunded}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	open := []State{StatePending, StateProcessing, StateConfirming, StateConfirmed}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestStateValid(t *testing.T) {
	if State("banana").Valid() {
		t.Error("unknown state should not be valid")
	}
	if !StateRefunded.Valid() {
		t.Error("refunded should be valid")
	}
	if !StatePending.Valid() {
		t.Error("pending should be valid")
	}
}
