// Package ledger maintains the append-only history of published permits. The
// ledger is a JSON array in the display repository, keyed by permit number;
// appending an already-published permit is a no-op so retried publications
// never rewrite the file.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/permit"
)

// Ledger is the loaded history plus the file it persists to.
type Ledger struct {
	path    string
	records []permit.Normalized
}

// Load reads the ledger file, starting from an empty sequence when the file
// does not exist yet.
func Load(path string) (*Ledger, error) {
	l := &Ledger{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read ledger: %w", err)
	}

	if err := json.Unmarshal(data, &l.records); err != nil {
		return nil, fmt.Errorf("cannot parse ledger %s: %w", path, err)
	}
	return l, nil
}

// Append adds rec to the history unless its permit number is already present.
// It reports whether the record was added and the resulting total count. The
// file is only rewritten when a record was actually added.
func (l *Ledger) Append(rec permit.Normalized) (added bool, total int, err error) {
	for _, existing := range l.records {
		if existing.PermitNumber == rec.PermitNumber {
			return false, len(l.records), nil
		}
	}

	l.records = append(l.records, rec)
	if err := l.save(); err != nil {
		// Keep the in-memory state consistent with the file.
		l.records = l.records[:len(l.records)-1]
		return false, len(l.records), err
	}
	return true, len(l.records), nil
}

// Contains reports whether a permit number is already in the history.
func (l *Ledger) Contains(permitNumber string) bool {
	for _, rec := range l.records {
		if rec.PermitNumber == permitNumber {
			return true
		}
	}
	return false
}

// Len returns the number of recorded permits.
func (l *Ledger) Len() int {
	return len(l.records)
}

func (l *Ledger) save() error {
	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode ledger: %w", err)
	}
	if err := os.WriteFile(l.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("cannot write ledger: %w", err)
	}
	return nil
}
