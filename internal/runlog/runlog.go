// Package runlog builds the per-run structured logger. Each acquisition run
// gets its own log file and run ID; the logger is threaded explicitly into
// every component instead of living in package-level state.
package runlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Run carries the logging sink for a single acquisition run.
type Run struct {
	Logger    *slog.Logger
	RunID     string
	StartedAt time.Time
	LogPath   string

	file *os.File
}

// New creates the run logger writing to stderr and a log file under dir.
func New(dir, level string) (*Run, error) {
	started := time.Now()
	runID := uuid.NewString()

	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return nil, fmt.Errorf("cannot create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("run-%s-%s.log", started.Format("20060102-150405"), runID[:8]))
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("cannot open run log file: %w", err)
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, f), &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	logger := slog.New(handler).With("run_id", runID)

	return &Run{
		Logger:    logger,
		RunID:     runID,
		StartedAt: started,
		LogPath:   logPath,
		file:      f,
	}, nil
}

// Close flushes and closes the run log file.
func (r *Run) Close() error {
	if r.file == nil {
		return nil
	}
	f := r.file
	r.file = nil
	return f.Close()
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
