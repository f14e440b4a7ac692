// Package archive moves consumed receipt documents into timestamped cold
// storage. A receipt is archived only after its permit was published (or
// publication was explicitly skipped); it is never deleted outright.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Archiver files receipts under <root>/archive/<year>/.
type Archiver struct {
	root string
	now  func() time.Time
}

// New creates an archiver rooted at dir.
func New(dir string) *Archiver {
	return &Archiver{root: dir, now: time.Now}
}

// Store moves src into cold storage and returns the destination path.
func (a *Archiver) Store(src string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("cannot access receipt: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("receipt path is a directory: %s", src)
	}

	ts := a.now()
	destDir := filepath.Join(a.root, "archive", ts.Format("2006"))
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return "", fmt.Errorf("cannot create archive directory: %w", err)
	}

	dest := filepath.Join(destDir, fmt.Sprintf("%s_%s", ts.Format("2006-01-02_150405"), filepath.Base(src)))

	if err := os.Rename(src, dest); err != nil {
		// Rename fails across filesystems; fall back to copy-then-remove.
		if copyErr := copyFile(src, dest); copyErr != nil {
			return "", fmt.Errorf("cannot archive receipt: %w", copyErr)
		}
		if rmErr := os.Remove(src); rmErr != nil {
			// The copy exists; the original staying behind is tolerable.
			return dest, nil
		}
	}

	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
