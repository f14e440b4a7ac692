// Package workflow drives a permit acquisition run through its outcome state
// machine and hands the resulting document to the parsing and publication
// pipeline.
package workflow

import "fmt"

// State of the acquisition state machine. Non-terminal states are milestones
// the run has reached; terminal states are the run's outcome.
type State string

const (
	StateStarted          State = "STARTED"
	StateSpaceCheck       State = "SPACE_CHECK"
	StateFormFilled       State = "FORM_FILLED"
	StatePaymentSubmitted State = "PAYMENT_SUBMITTED"

	StateDocumentReady State = "DOCUMENT_READY"
	StateAlreadyExists State = "ALREADY_EXISTS"
	StateDeclined      State = "DECLINED"
	StateDryRunStop    State = "DRY_RUN_STOP"
	StateFailed        State = "FAILED"
)

// IsTerminal reports whether no further transition occurs in the current run.
func IsTerminal(s State) bool {
	switch s {
	case StateDocumentReady, StateAlreadyExists, StateDeclined, StateDryRunStop, StateFailed:
		return true
	default:
		return false
	}
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StateStarted:
		return to == StateSpaceCheck || to == StateAlreadyExists || to == StateFailed
	case StateSpaceCheck:
		return to == StateFormFilled || to == StateFailed
	case StateFormFilled:
		return to == StateDryRunStop || to == StatePaymentSubmitted
	case StatePaymentSubmitted:
		return to == StateDocumentReady || to == StateDeclined || to == StateFailed
	default:
		return false
	}
}

// transition validates and performs a state change, returning the new state.
// A disallowed transition indicates a bug in the machine itself.
func transition(from, to State) (State, error) {
	if !isAllowedTransition(from, to) {
		return from, fmt.Errorf("disallowed transition: %s -> %s", from, to)
	}
	return to, nil
}
