package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateStarted, StateSpaceCheck},
		{StateStarted, StateAlreadyExists},
		{StateStarted, StateFailed},
		{StateSpaceCheck, StateFormFilled},
		{StateSpaceCheck, StateFailed},
		{StateFormFilled, StateDryRunStop},
		{StateFormFilled, StatePaymentSubmitted},
		{StatePaymentSubmitted, StateDocumentReady},
		{StatePaymentSubmitted, StateDeclined},
		{StatePaymentSubmitted, StateFailed},
	}
	for _, tr := range allowed {
		got, err := transition(tr.from, tr.to)
		assert.NoError(t, err, "%s -> %s", tr.from, tr.to)
		assert.Equal(t, tr.to, got)
	}

	disallowed := []struct{ from, to State }{
		{StateStarted, StateDocumentReady},
		{StateStarted, StateDryRunStop},
		{StateSpaceCheck, StateAlreadyExists},
		{StateSpaceCheck, StateDocumentReady},
		{StateFormFilled, StateFailed},
		{StateFormFilled, StateAlreadyExists},
		{StatePaymentSubmitted, StateDryRunStop},
		// terminal states never leave
		{StateDocumentReady, StateFailed},
		{StateAlreadyExists, StateSpaceCheck},
		{StateDeclined, StatePaymentSubmitted},
		{StateDryRunStop, StatePaymentSubmitted},
		{StateFailed, StateStarted},
	}
	for _, tr := range disallowed {
		got, err := transition(tr.from, tr.to)
		assert.Error(t, err, "%s -> %s", tr.from, tr.to)
		assert.Equal(t, tr.from, got, "a rejected transition must not move the state")
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []State{StateDocumentReady, StateAlreadyExists, StateDeclined, StateDryRunStop, StateFailed}
	for _, s := range terminal {
		assert.True(t, IsTerminal(s), string(s))
	}
	for _, s := range []State{StateStarted, StateSpaceCheck, StateFormFilled, StatePaymentSubmitted} {
		assert.False(t, IsTerminal(s), string(s))
	}
}

func TestOutcomeExitCode(t *testing.T) {
	cases := []struct {
		state State
		code  int
	}{
		{StateDocumentReady, ExitOK},
		{StateAlreadyExists, ExitOK},
		{StateDryRunStop, ExitOK},
		{StateDeclined, ExitActionable},
		{StateFailed, ExitFailed},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, Outcome{State: tc.state}.ExitCode(), string(tc.state))
	}
}
