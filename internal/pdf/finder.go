package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoReceipt indicates no receipt-looking PDF was found in the directory.
var ErrNoReceipt = errors.New("no receipt PDF found")

// Receipt filename fragments, in priority order. The permit site names its
// downloads after the permit type, but browsers occasionally rename on
// collision, so a generic PDF fallback closes the gap.
var receiptNamePriority = []string{
	"temporary parking permit",
	"parking permit receipt",
	"permit",
	"receipt",
}

// Finder locates the downloaded receipt document inside the download
// directory. Results outside the directory (symlink escapes) are rejected.
type Finder struct {
	dir         string
	maxFileSize int64
}

// NewFinder creates a finder confined to dir.
func NewFinder(dir string, maxFileSize int64) *Finder {
	return &Finder{dir: dir, maxFileSize: maxFileSize}
}

// FindReceipt returns the most recent receipt PDF modified after newerThan.
// A zero newerThan matches any modification time. Name-priority buckets are
// searched in order; within a bucket the newest file wins.
func (f *Finder) FindReceipt(newerThan time.Time) (string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return "", fmt.Errorf("cannot read download directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}

	// One bucket per name fragment plus a catch-all for plain PDFs.
	buckets := make([][]candidate, len(receiptNamePriority)+1)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".pdf") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !newerThan.IsZero() && !info.ModTime().After(newerThan) {
			continue
		}
		if f.maxFileSize > 0 && info.Size() > f.maxFileSize {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		if ok, err := f.withinDir(path); err != nil || !ok {
			continue
		}

		c := candidate{path: path, modTime: info.ModTime()}
		bucket := len(receiptNamePriority)
		for i, fragment := range receiptNamePriority {
			if strings.Contains(name, fragment) {
				bucket = i
				break
			}
		}
		buckets[bucket] = append(buckets[bucket], c)
	}

	for _, bucket := range buckets {
		var best *candidate
		for i := range bucket {
			if best == nil || bucket[i].modTime.After(best.modTime) {
				best = &bucket[i]
			}
		}
		if best != nil {
			return best.path, nil
		}
	}

	return "", ErrNoReceipt
}

// withinDir checks the resolved path stays inside the download directory.
func (f *Finder) withinDir(path string) (bool, error) {
	absDir, err := filepath.Abs(f.dir)
	if err != nil {
		return false, err
	}

	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false, err
	}
	realDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return false, err
	}

	realDir = filepath.Clean(realDir)
	if !strings.HasSuffix(realDir, string(filepath.Separator)) {
		realDir += string(filepath.Separator)
	}
	return strings.HasPrefix(filepath.Clean(realPath), realDir), nil
}
