package entity

import "time"

// CategoryInconsistency records a raw category string with no mapping.
// Diagnostic only; the offending record continues as "uncategorized".
type CategoryInconsistency struct {
	Source         string    `json:"source"`
	RawCategory    string    `json:"raw_category"`
	RawSubCategory string    `json:"raw_subcategory"`
	At             time.Time `json:"at"`
}

// SkippedRecord records a record that failed extraction. The record itself
// is not dropped, only flagged.
type SkippedRecord struct {
	Source    string    `json:"source"`
	Name      string    `json:"name"`
	RawFields string    `json:"raw_fields"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}
