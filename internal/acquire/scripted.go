package acquire

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Exit codes the external driver uses to report non-fault outcomes.
const (
	exitPermitExists     = 10
	exitSpaceUnavailable = 11
	exitPaymentDeclined  = 12
)

// ScriptedDriver drives an external browser-automation command, one
// invocation per phase. The command receives the phase name and the request
// as arguments and reports outcomes through exit codes; on a declined
// payment it prints the screenshot path on stdout.
type ScriptedDriver struct {
	command     string
	elementWait time.Duration
	log         *slog.Logger
}

// NewScriptedDriver wraps the configured driver command.
func NewScriptedDriver(command string, elementWait time.Duration, log *slog.Logger) *ScriptedDriver {
	return &ScriptedDriver{command: command, elementWait: elementWait, log: log}
}

func (d *ScriptedDriver) run(ctx context.Context, phase string, args ...string) (string, error) {
	all := append([]string{phase, fmt.Sprintf("--element-wait=%s", d.elementWait)}, args...)
	cmd := exec.CommandContext(ctx, d.command, all...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	d.log.Debug("driver phase", "phase", phase)
	err := cmd.Run()
	out := strings.TrimSpace(stdout.String())
	if err == nil {
		return out, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		switch exitErr.ExitCode() {
		case exitPermitExists:
			return out, ErrPermitExists
		case exitSpaceUnavailable:
			return out, ErrSpaceUnavailable
		case exitPaymentDeclined:
			return out, &DeclinedError{
				Reason:     strings.TrimSpace(stderr.String()),
				Screenshot: out,
			}
		}
	}
	return out, fmt.Errorf("driver %s failed: %w: %s", phase, err, strings.TrimSpace(stderr.String()))
}

// Start opens the permit form.
func (d *ScriptedDriver) Start(ctx context.Context, req Request) error {
	args := []string{
		"--plate=" + req.Vehicle.Plate,
		"--start-date=" + req.StartDate,
	}
	if req.Headless {
		args = append(args, "--headless")
	}
	_, err := d.run(ctx, "start", args...)
	return err
}

// CheckSpace confirms space availability.
func (d *ScriptedDriver) CheckSpace(ctx context.Context) error {
	_, err := d.run(ctx, "check-space")
	return err
}

// FillForms completes the applicant and vehicle pages.
func (d *ScriptedDriver) FillForms(ctx context.Context, req Request) error {
	_, err := d.run(ctx, "fill-forms",
		"--plate="+req.Vehicle.Plate,
		"--initials="+req.Address.Initials,
		"--surname="+req.Address.Surname,
		"--street-number="+req.Address.StreetNumber,
		"--street-name="+req.Address.StreetName,
		"--duration="+req.Duration,
		"--start-date="+req.StartDate,
	)
	return err
}

// SubmitPayment fills the payment iframe and submits. The card number is
// passed over stdin, never as an argument, to keep it out of the process list.
func (d *ScriptedDriver) SubmitPayment(ctx context.Context, req Request) error {
	cmd := exec.CommandContext(ctx, d.command, "submit-payment",
		fmt.Sprintf("--element-wait=%s", d.elementWait),
		"--cardholder="+req.Card.Holder,
	)
	cmd.Stdin = strings.NewReader(fmt.Sprintf("%s\n%s\n%s\n", req.Card.Number, req.Card.Expiry, req.Card.CVV))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == exitPaymentDeclined {
		return &DeclinedError{
			Reason:     strings.TrimSpace(stderr.String()),
			Screenshot: strings.TrimSpace(stdout.String()),
		}
	}
	return fmt.Errorf("driver submit-payment failed: %w: %s", err, strings.TrimSpace(stderr.String()))
}

// FetchReceipt re-downloads the receipt of an existing permit through the UI
// permit search. The driver prints the downloaded file path on stdout. This
// makes the scripted driver usable as the slow path of a Fetcher pair.
func (d *ScriptedDriver) FetchReceipt(ctx context.Context, plate string) (string, error) {
	out, err := d.run(ctx, "fetch-receipt", "--plate="+plate)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("driver fetch-receipt reported no file for plate %s", plate)
	}
	return out, nil
}

// Close stops the driver's browser session.
func (d *ScriptedDriver) Close() error {
	_, err := d.run(context.Background(), "quit")
	return err
}
