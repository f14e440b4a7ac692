package workflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/acquire"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/pdf"
)

// ReceiptFinder locates the downloaded receipt document.
type ReceiptFinder interface {
	FindReceipt(newerThan time.Time) (string, error)
}

// Machine runs one acquisition attempt through the outcome state machine.
type Machine struct {
	Driver acquire.Driver
	Finder ReceiptFinder
	Log    *slog.Logger

	DryRun         bool
	NonInteractive bool
	DocumentWait   time.Duration // total polling budget for the receipt
	PollInterval   time.Duration

	// Interactive reports whether an operator is attached. Overridable for
	// tests; defaults to a stdin TTY check.
	Interactive func() bool

	// Confirm is read for operator confirmation when polling lapses on an
	// interactive run. Defaults to stdin.
	Confirm io.Reader
}

func (m *Machine) interactive() bool {
	if m.NonInteractive {
		return false
	}
	if m.Interactive != nil {
		return m.Interactive()
	}
	return isatty.IsTerminal(os.Stdin.Fd())
}

func (m *Machine) pollInterval() time.Duration {
	if m.PollInterval > 0 {
		return m.PollInterval
	}
	return time.Second
}

// Run drives the acquisition to one of the terminal states. Budget overruns
// and driver signals are normal inputs to the machine, never panics; the
// only errors that surface as FAILED reasons are genuine faults.
func (m *Machine) Run(ctx context.Context, req acquire.Request) Outcome {
	state := StateStarted
	started := time.Now()
	m.Log.Info("acquisition started", "plate", req.Vehicle.Plate, "dry_run", m.DryRun)

	if err := m.Driver.Start(ctx, req); err != nil {
		if errors.Is(err, acquire.ErrPermitExists) {
			state = m.mustTransition(state, StateAlreadyExists)
			m.Log.Info("permit already exists for this vehicle and period")
			return Outcome{State: state}
		}
		return m.fail(state, fmt.Errorf("open permit form: %w", err))
	}

	state = m.mustTransition(state, StateSpaceCheck)

	if err := m.Driver.CheckSpace(ctx); err != nil {
		return m.fail(state, fmt.Errorf("space check: %w", err))
	}

	if err := m.Driver.FillForms(ctx, req); err != nil {
		return m.fail(state, fmt.Errorf("fill forms: %w", err))
	}
	state = m.mustTransition(state, StateFormFilled)

	if m.DryRun {
		state = m.mustTransition(state, StateDryRunStop)
		m.Log.Info("dry run: stopping before payment submission")
		return Outcome{State: state}
	}

	state = m.mustTransition(state, StatePaymentSubmitted)

	if err := m.Driver.SubmitPayment(ctx, req); err != nil {
		var declined *acquire.DeclinedError
		if errors.As(err, &declined) {
			state = m.mustTransition(state, StateDeclined)
			m.Log.Warn("payment declined", "reason", declined.Reason)
			return Outcome{State: state, Reason: declined.Reason, Screenshot: declined.Screenshot}
		}
		return m.fail(state, fmt.Errorf("submit payment: %w", err))
	}

	path := m.awaitDocument(ctx, started)
	state = m.mustTransition(state, StateDocumentReady)
	return Outcome{State: state, DocumentPath: path}
}

// awaitDocument polls for the receipt within the budget. When the window
// lapses, an attended run blocks for operator confirmation and rescans once;
// an unattended run degrades to success with an absent path so it can never
// hang indefinitely.
func (m *Machine) awaitDocument(ctx context.Context, newerThan time.Time) string {
	deadline := time.Now().Add(m.DocumentWait)
	interval := m.pollInterval()

	for time.Now().Before(deadline) {
		if path, err := m.Finder.FindReceipt(newerThan); err == nil {
			return path
		}

		select {
		case <-ctx.Done():
			return ""
		case <-time.After(interval):
		}
	}

	if !m.interactive() {
		m.Log.Warn("receipt document did not appear within the polling window; continuing without it")
		return ""
	}

	m.Log.Info("receipt document not detected; waiting for operator confirmation")
	fmt.Fprintln(os.Stderr, "Receipt not detected. Press enter once the download has completed...")

	in := m.Confirm
	if in == nil {
		in = os.Stdin
	}
	_, _ = bufio.NewReader(in).ReadString('\n')

	if path, err := m.Finder.FindReceipt(newerThan); err == nil {
		return path
	}
	m.Log.Warn("receipt document still not present after confirmation")
	return ""
}

// mustTransition performs a transition the machine's own flow guarantees to
// be legal; a violation would be a bug, so it is logged loudly.
func (m *Machine) mustTransition(from, to State) State {
	next, err := transition(from, to)
	if err != nil {
		m.Log.Error("state machine bug", "error", err)
		return to
	}
	return next
}

func (m *Machine) fail(from State, err error) Outcome {
	state, terr := transition(from, StateFailed)
	if terr != nil {
		state = StateFailed
	}
	m.Log.Error("acquisition failed", "state", string(state), "error", err)
	return Outcome{State: state, Reason: err.Error()}
}

// compile-time check that the pdf finder satisfies ReceiptFinder.
var _ ReceiptFinder = (*pdf.Finder)(nil)
