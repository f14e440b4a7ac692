package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogNotifierSeverityLevels(t *testing.T) {
	tests := []struct {
		severity  Severity
		wantLevel string
	}{
		{SeverityInfo, "level=INFO"},
		{SeverityAction, "level=WARN"},
		{SeverityFatal, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			var buf bytes.Buffer
			n := &LogNotifier{Log: slog.New(slog.NewTextHandler(&buf, nil))}

			err := n.Notify(context.Background(), Notification{
				Subject:  "permit run finished",
				Kind:     "DECLINED",
				Severity: tt.severity,
				Details:  map[string]string{"plate": "CSEB187"},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("log output %q missing %q", out, tt.wantLevel)
			}
			if !strings.Contains(out, "plate=CSEB187") {
				t.Errorf("log output %q missing details", out)
			}
		})
	}
}

func TestLogNotifierIncludesScreenshot(t *testing.T) {
	var buf bytes.Buffer
	n := &LogNotifier{Log: slog.New(slog.NewTextHandler(&buf, nil))}

	_ = n.Notify(context.Background(), Notification{
		Subject:    "payment declined",
		Kind:       "DECLINED",
		Severity:   SeverityAction,
		Screenshot: "/tmp/declined.png",
	})

	if !strings.Contains(buf.String(), "screenshot=/tmp/declined.png") {
		t.Errorf("log output %q missing screenshot reference", buf.String())
	}
}

type recordingNotifier struct {
	got []Notification
	err error
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func TestMultiDeliversToAll(t *testing.T) {
	a := &recordingNotifier{err: errors.New("smtp down")}
	b := &recordingNotifier{}

	err := Multi{a, b}.Notify(context.Background(), Notification{Subject: "s"})
	if err == nil {
		t.Fatal("expected first notifier's error to surface")
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("expected both notifiers to receive the notification, got %d/%d", len(a.got), len(b.got))
	}
}
