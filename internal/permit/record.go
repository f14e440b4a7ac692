// Package permit holds the domain model for a parking permit: the raw record
// recovered from receipt text and its normalized, publishable form.
package permit

// Record is the permit data as extracted from receipt text. An empty string
// means the field was absent from the document; extraction never fails on
// missing data, it leaves fields empty.
type Record struct {
	PermitNumber string
	PlateNumber  string
	BarcodeLabel string
	ValidFrom    string
	ValidTo      string
	AmountPaid   string // best-effort, excluded from completeness
}

// Complete reports whether all core fields were recovered. Completeness gates
// publication: an incomplete record must never be normalized.
func (r Record) Complete() bool {
	return r.PermitNumber != "" &&
		r.PlateNumber != "" &&
		r.BarcodeLabel != "" &&
		r.ValidFrom != "" &&
		r.ValidTo != ""
}

// Missing returns the names of absent core fields, for diagnostics.
func (r Record) Missing() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"permitNumber", r.PermitNumber},
		{"plateNumber", r.PlateNumber},
		{"barcodeLabel", r.BarcodeLabel},
		{"validFrom", r.ValidFrom},
		{"validTo", r.ValidTo},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Normalized is the canonical persisted form consumed by the display device.
// Field names and order match the published JSON file exactly.
type Normalized struct {
	PermitNumber string `json:"permitNumber"`
	PlateNumber  string `json:"plateNumber"`
	ValidFrom    string `json:"validFrom"`
	ValidTo      string `json:"validTo"`
	BarcodeValue string `json:"barcodeValue"`
	BarcodeLabel string `json:"barcodeLabel"`
	AmountPaid   string `json:"amountPaid,omitempty"`
}
