// Package notify delivers run outcomes to the operator. The workflow decides
// whether and with what severity to notify; notifiers only deliver.
package notify

import (
	"context"
	"log/slog"
)

// Severity of a notification. Expected terminal states never notify at all,
// so there is no "none" level here.
type Severity string

const (
	SeverityInfo   Severity = "info"   // successful run summary, dry-run
	SeverityAction Severity = "action" // user-actionable: declined payment, incomplete extraction
	SeverityFatal  Severity = "fatal"  // unanticipated structural failure
)

// Notification is one outcome report.
type Notification struct {
	Subject    string
	Kind       string // terminal state name
	Severity   Severity
	Details    map[string]string
	Screenshot string // optional diagnostic image path
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the run log. Always present, so every
// alert lands somewhere even without SMTP configured.
type LogNotifier struct {
	Log *slog.Logger
}

// Notify logs the notification at a level matching its severity.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	attrs := []any{"kind", n.Kind, "severity", string(n.Severity)}
	for k, v := range n.Details {
		attrs = append(attrs, k, v)
	}
	if n.Screenshot != "" {
		attrs = append(attrs, "screenshot", n.Screenshot)
	}

	switch n.Severity {
	case SeverityFatal:
		l.Log.Error(n.Subject, attrs...)
	case SeverityAction:
		l.Log.Warn(n.Subject, attrs...)
	default:
		l.Log.Info(n.Subject, attrs...)
	}
	return nil
}

// Multi fans a notification out to several notifiers; delivery failures of
// one notifier do not stop the others. The first error is returned.
type Multi []Notifier

// Notify delivers to every notifier.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	var firstErr error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
