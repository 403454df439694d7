package model

// State of a transaction. Transitions move only forward along the ladder
// Pending < Processing < Confirming < Confirmed < Completed; the abort
// states are reachable from any non-terminal state.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateConfirming State = "confirming"
	StateConfirmed  State = "confirmed"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateFailed     State = "failed"
	StateRefunded   State = "refunded"
)

var stateRank = map[State]int{
	StatePending:    0,
	StateProcessing: 1,
	StateConfirming: 2,
	StateConfirmed:  3,
	StateCompleted:  4,
}

// Rank returns the position of a ladder state in the canonical order.
// Abort states have no rank and return -1.
func (s State) Rank() int {
	r, ok := stateRank[s]
	if !ok {
		return -1
	}
	return r
}

// Terminal reports whether no further transitions are accepted from s.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed, StateRefunded:
		return true
	}
	return false
}

// Abort reports whether s is a terminal state reachable from any
// non-terminal state, outside the ladder order.
func (s State) Abort() bool {
	switch s {
	case StateCancelled, StateFailed, StateRefunded:
		return true
	}
	return false
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s.Rank() >= 0 || s.Abort()
}

// CanAdvance is the single admission test of the reconciliation engine:
// whether a transaction currently in from may move to to.
func CanAdvance(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to.Abort() {
		return true
	}
	return to.Rank() > from.Rank()
}
