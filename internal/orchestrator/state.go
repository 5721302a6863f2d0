package orchestrator

import "fmt"

// State is a stage in an environment's lifecycle.
type State string

const (
	StateNotStarted   State = "not-started"
	StateResolving    State = "resolving"
	StateFetching     State = "fetching"
	StateProvisioning State = "provisioning"
	StateReady        State = "ready"
	StateFailed       State = "failed"
)

// stateOrder gives the pipeline position of each non-failed state.
var stateOrder = map[State]int{
	StateNotStarted:   0,
	StateResolving:    1,
	StateFetching:     2,
	StateProvisioning: 3,
	StateReady:        4,
}

// Terminal reports whether no further transitions can happen within a run.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	if s == StateFailed {
		return true
	}
	_, ok := stateOrder[s]
	return ok
}

// canTransition reports whether a run may move from one state to the
// next. Within a run states only move forward, one stage at a time;
// failed is reachable from any active stage and is terminal.
func canTransition(from, to State) bool {
	if from == StateFailed || from == StateReady {
		return false
	}
	if to == StateFailed {
		return true
	}

	fromRank, ok := stateOrder[from]
	if !ok {
		return false
	}
	toRank, ok := stateOrder[to]
	if !ok {
		return false
	}
	return toRank == fromRank+1
}

// checkTransition returns an error for a transition canTransition rejects.
func checkTransition(from, to State) error {
	if !canTransition(from, to) {
		return fmt.Errorf("invalid state transition %s -> %s", from, to)
	}
	return nil
}
