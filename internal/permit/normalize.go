package permit

import "strings"

// Normalize reformats a complete record into the canonical schema consumed by
// the display device. The caller must gate on r.Complete() first; calling
// Normalize on an incomplete record is a precondition violation.
func Normalize(r Record) Normalized {
	return Normalized{
		PermitNumber: r.PermitNumber,
		PlateNumber:  r.PlateNumber,
		ValidFrom:    canonicalDate(r.ValidFrom),
		ValidTo:      canonicalDate(r.ValidTo),
		BarcodeValue: barcodeValue(r.PermitNumber),
		BarcodeLabel: r.BarcodeLabel,
		AmountPaid:   r.AmountPaid,
	}
}

// canonicalDate turns "Oct 20, 2025 at 1:08 AM" into "Oct 20, 2025: 1:08".
// Strings without the " at " separator (the slash convention) pass through
// unchanged; the downstream consumer accepts both shapes verbatim.
func canonicalDate(s string) string {
	date, clock, found := strings.Cut(s, " at ")
	if !found {
		return s
	}
	clock = strings.TrimSuffix(clock, " AM")
	clock = strings.TrimSuffix(clock, " PM")
	return date + ": " + clock
}

// barcodeValue strips the permit scheme's prefix letter; it is not part of the
// scannable code.
func barcodeValue(permitNumber string) string {
	if len(permitNumber) <= 1 {
		return ""
	}
	return permitNumber[1:]
}
