// Package acquire defines the contract between the workflow and the browser
// automation that actually obtains a permit. The UI scripting itself lives in
// an external driver; this package gives it a phase-by-phase surface the
// outcome state machine can drive, plus a faster direct-request path for
// re-fetching receipts of already-acquired permits.
package acquire

import (
	"context"
	"errors"
	"fmt"

	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/profile"
)

// Sentinel signals a driver reports through errors. The workflow maps them to
// terminal states; none of them is an infrastructure fault.
var (
	// ErrPermitExists means an equivalent permit already covers this
	// vehicle/period. Expected, non-error outcome.
	ErrPermitExists = errors.New("permit already exists for this vehicle and period")

	// ErrSpaceUnavailable means the street has no permit space for the period.
	ErrSpaceUnavailable = errors.New("no parking space available")
)

// DeclinedError reports a payment rejection, optionally with a diagnostic
// screenshot captured at the rejection page.
type DeclinedError struct {
	Reason     string
	Screenshot string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

// Request carries everything a driver needs to buy one permit.
type Request struct {
	Vehicle   profile.Vehicle
	Card      profile.Card
	Address   profile.Address
	StartDate string // M/D/YYYY, as the form expects
	Duration  string // permit type dropdown text, e.g. "24 hour"
	Headless  bool
}

// Driver walks the permit purchase one phase at a time so the workflow can
// observe each transition. Implementations block until their phase settles or
// its wait budget expires.
type Driver interface {
	// Start opens the form and accepts the terms. Returns ErrPermitExists
	// when the site reports an equivalent active permit.
	Start(ctx context.Context, req Request) error

	// CheckSpace confirms permit space is available for the requested period.
	CheckSpace(ctx context.Context) error

	// FillForms completes the applicant and vehicle pages up to, but not
	// including, payment submission.
	FillForms(ctx context.Context, req Request) error

	// SubmitPayment submits the payment form. Returns *DeclinedError on a
	// payment rejection signal.
	SubmitPayment(ctx context.Context, req Request) error

	// Close releases the driver's resources.
	Close() error
}
