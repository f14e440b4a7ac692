package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/acquire"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/notify"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/permit"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/publish"
)

// TextExtractor turns a receipt document into raw text.
type TextExtractor interface {
	ExtractText(path string) (string, error)
}

// Publisher pushes a normalized permit to the remote store.
type Publisher interface {
	Publish(ctx context.Context, rec permit.Normalized) publish.Result
}

// Archiver moves a consumed receipt into cold storage.
type Archiver interface {
	Store(src string) (string, error)
}

// Processor consumes a terminal outcome: on the document path it extracts,
// normalizes, publishes and archives; on the other paths it applies the
// notification table and exits. It owns the whether-and-severity decision
// for every notification.
type Processor struct {
	Extractor   TextExtractor
	Publisher   Publisher
	Archiver    Archiver
	Notifier    notify.Notifier
	Log         *slog.Logger
	SkipPublish bool
}

// Process handles a terminal outcome and returns the process exit code.
func (p *Processor) Process(ctx context.Context, outcome Outcome, req acquire.Request) int {
	switch outcome.State {
	case StateAlreadyExists:
		// Expected terminal state: clean exit, no alert.
		p.Log.Info("a permit already covers this vehicle and period; use --refetch to recover its receipt",
			"plate", req.Vehicle.Plate)
		return outcome.ExitCode()

	case StateDryRunStop:
		p.Log.Info("dry run complete; no payment was submitted")
		return outcome.ExitCode()

	case StateDeclined:
		p.notify(ctx, notify.Notification{
			Subject:  "Parking permit payment was declined",
			Kind:     string(StateDeclined),
			Severity: notify.SeverityAction,
			Details: map[string]string{
				"plate":  req.Vehicle.Plate,
				"card":   req.Card.Name,
				"reason": outcome.Reason,
			},
			Screenshot: outcome.Screenshot,
		})
		return outcome.ExitCode()

	case StateFailed:
		p.notify(ctx, notify.Notification{
			Subject:  "Parking permit acquisition failed",
			Kind:     string(StateFailed),
			Severity: notify.SeverityFatal,
			Details: map[string]string{
				"plate":  req.Vehicle.Plate,
				"reason": outcome.Reason,
			},
			Screenshot: outcome.Screenshot,
		})
		return outcome.ExitCode()

	case StateDocumentReady:
		return p.processDocument(ctx, outcome, req)

	default:
		p.Log.Error("unexpected terminal state", "state", string(outcome.State))
		return ExitFailed
	}
}

func (p *Processor) processDocument(ctx context.Context, outcome Outcome, req acquire.Request) int {
	if outcome.DocumentPath == "" {
		// Degraded continuation: the receipt never appeared within the
		// polling window. Nothing was published and nothing was lost; the
		// re-fetch path recovers the document later.
		p.notify(ctx, notify.Notification{
			Subject:  "Parking permit acquired, receipt not yet retrieved",
			Kind:     string(StateDocumentReady),
			Severity: notify.SeverityInfo,
			Details: map[string]string{
				"plate": req.Vehicle.Plate,
				"note":  "receipt did not appear in the download directory; run with --refetch to publish it",
			},
		})
		return ExitOK
	}

	text, err := p.Extractor.ExtractText(outcome.DocumentPath)
	if err != nil {
		p.notify(ctx, notify.Notification{
			Subject:  "Parking permit receipt could not be read",
			Kind:     string(StateFailed),
			Severity: notify.SeverityFatal,
			Details: map[string]string{
				"plate":    req.Vehicle.Plate,
				"document": outcome.DocumentPath,
				"reason":   err.Error(),
			},
		})
		return ExitFailed
	}

	record := permit.Extract(text)
	if !record.Complete() {
		// User-actionable: the operator fills the gaps by hand.
		p.notify(ctx, notify.Notification{
			Subject:  "Parking permit receipt was only partially parsed",
			Kind:     "INCOMPLETE_EXTRACTION",
			Severity: notify.SeverityAction,
			Details: map[string]string{
				"plate":    req.Vehicle.Plate,
				"document": outcome.DocumentPath,
				"missing":  strings.Join(record.Missing(), ", "),
				"partial":  fmt.Sprintf("%+v", record),
			},
		})
		return ExitActionable
	}

	normalized := permit.Normalize(record)

	if !p.SkipPublish {
		result := p.Publisher.Publish(ctx, normalized)
		if result.Err != nil {
			severity := notify.SeverityFatal
			subject := "Parking permit publication failed"
			if result.Conflict {
				subject = "Parking permit publication hit a conflict"
			}
			p.notify(ctx, notify.Notification{
				Subject:  subject,
				Kind:     string(StateFailed),
				Severity: severity,
				Details: map[string]string{
					"permit": normalized.PermitNumber,
					"plate":  normalized.PlateNumber,
					"reason": result.Err.Error(),
				},
			})
			return ExitFailed
		}
	}

	// Archive only after a successful or explicitly skipped publication.
	archived := ""
	if dest, err := p.Archiver.Store(outcome.DocumentPath); err != nil {
		p.Log.Warn("could not archive receipt", "document", outcome.DocumentPath, "error", err)
	} else {
		archived = dest
	}

	details := map[string]string{
		"permit":    normalized.PermitNumber,
		"plate":     normalized.PlateNumber,
		"validFrom": normalized.ValidFrom,
		"validTo":   normalized.ValidTo,
	}
	if archived != "" {
		details["archived"] = archived
	}
	if p.SkipPublish {
		details["note"] = "publication skipped by configuration"
	}
	p.notify(ctx, notify.Notification{
		Subject:  fmt.Sprintf("Parking permit %s published", normalized.PermitNumber),
		Kind:     string(StateDocumentReady),
		Severity: notify.SeverityInfo,
		Details:  details,
	})
	return ExitOK
}

func (p *Processor) notify(ctx context.Context, n notify.Notification) {
	if err := p.Notifier.Notify(ctx, n); err != nil {
		p.Log.Error("notification delivery failed", "subject", n.Subject, "error", err)
	}
}
