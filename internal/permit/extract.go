package permit

import (
	"regexp"
	"strings"
)

// Receipt layouts vary between permit generations, so each field carries an
// ordered list of pattern strategies. The first strategy that matches wins;
// there is no merging across strategies and no backtracking once one matched.

var permitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Permit\s+no\.?\s*:\s*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)Permit\s+number\s*:\s*([A-Z0-9]+)`),
}

var platePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Plate\s+no\.?\s*:\s*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)(?:License|Licence)\s+plate\s*:\s*([A-Z0-9]+)`),
}

// The barcode label is a standalone 5-digit token: either isolated on its own
// line, or immediately preceding the permit-number label. If the layout does
// not isolate such a token the field stays absent rather than guessing.
var barcodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*(\d{5})\s*$`),
	regexp.MustCompile(`(?is)(\d{5})\s*\n[^\n]*Permit\s+no`),
}

// Two date-rendering conventions have been observed on receipts:
// "Month D, YYYY at H:MM AM|PM" and the slash form "M/D/YYYY [H:MM[AM|PM]]".
var validFromPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Valid\s+from\s*:\s*([A-Z][a-z]+\s+\d{1,2},?\s+\d{4}(?:\s+at\s+\d{1,2}:\d{2}\s*(?:AM|PM))?)`),
	regexp.MustCompile(`(?i)Valid\s+from\s*:\s*(\d{1,2}/\d{1,2}/\d{4}(?:\s+\d{1,2}:\d{2}\s*(?:AM|PM)?)?)`),
}

var validToPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Valid\s+to\s*:\s*([A-Z][a-z]+\s+\d{1,2},?\s+\d{4}(?:\s+at\s+\d{1,2}:\d{2}\s*(?:AM|PM))?)`),
	regexp.MustCompile(`(?i)Valid\s+to\s*:\s*(\d{1,2}/\d{1,2}/\d{4}(?:\s+\d{1,2}:\d{2}\s*(?:AM|PM)?)?)`),
}

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Amount\s+paid\s*:?\s*\$?\s*([0-9][0-9,]*\.\d{2})`),
	regexp.MustCompile(`(?i)Total\s*:?\s*\$?\s*([0-9][0-9,]*\.\d{2})`),
}

// Extract recovers a permit record from raw receipt text. Fields whose
// strategies all fail stay empty; Extract never returns an error.
func Extract(raw string) Record {
	return Record{
		PermitNumber: firstMatch(raw, permitPatterns),
		PlateNumber:  strings.ToUpper(firstMatch(raw, platePatterns)),
		BarcodeLabel: firstMatch(raw, barcodePatterns),
		ValidFrom:    firstMatch(raw, validFromPatterns),
		ValidTo:      firstMatch(raw, validToPatterns),
		AmountPaid:   firstMatch(raw, amountPatterns),
	}
}

func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
