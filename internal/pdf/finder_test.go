package pdf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestFindReceiptPrefersPermitNames(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	// The generic PDF is newer, but the named receipt must win.
	writeFile(t, dir, "statement.pdf", now)
	want := writeFile(t, dir, "Temporary Parking Permit - receipt.pdf", now.Add(-time.Hour))

	f := NewFinder(dir, 1<<20)
	got, err := f.FindReceipt(time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("FindReceipt() = %q, want %q", got, want)
	}
}

func TestFindReceiptNewestWithinBucket(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	writeFile(t, dir, "permit-old.pdf", now.Add(-2*time.Hour))
	want := writeFile(t, dir, "permit-new.pdf", now.Add(-time.Minute))

	f := NewFinder(dir, 1<<20)
	got, err := f.FindReceipt(time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("FindReceipt() = %q, want %q", got, want)
	}
}

func TestFindReceiptHonorsNewerThan(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	writeFile(t, dir, "permit-stale.pdf", now.Add(-time.Hour))

	f := NewFinder(dir, 1<<20)
	_, err := f.FindReceipt(now.Add(-time.Minute))
	if !errors.Is(err, ErrNoReceipt) {
		t.Fatalf("expected ErrNoReceipt for stale files, got %v", err)
	}

	want := writeFile(t, dir, "permit-fresh.pdf", now)
	got, err := f.FindReceipt(now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("FindReceipt() = %q, want %q", got, want)
	}
}

func TestFindReceiptIgnoresNonPDF(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "permit.txt"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFinder(dir, 1<<20)
	if _, err := f.FindReceipt(time.Time{}); !errors.Is(err, ErrNoReceipt) {
		t.Fatalf("expected ErrNoReceipt, got %v", err)
	}
}

func TestFindReceiptGenericFallback(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, dir, "document.pdf", time.Now())

	f := NewFinder(dir, 1<<20)
	got, err := f.FindReceipt(time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("FindReceipt() = %q, want %q", got, want)
	}
}

func TestFindReceiptSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "permit.pdf", time.Now())

	f := NewFinder(dir, 4) // smaller than any test file
	if _, err := f.FindReceipt(time.Time{}); !errors.Is(err, ErrNoReceipt) {
		t.Fatalf("expected ErrNoReceipt for oversized files, got %v", err)
	}
}
