package entity

import "time"

// RawRecord is a single product listing as delivered by a source feed.
// It is immutable once produced; the pipeline never mutates it.
type RawRecord struct {
	Source              string
	Category            string
	SubCategory         string
	Name                string
	Brand               string
	QuantityText        string
	PrimaryPrice        string
	PrimaryPriceUnit    string
	SecondaryPrice      string
	SecondaryPriceUnit  string
	BeforeDiscountPrice string
	ImageURL            string
}

// Quantity is the structured form of a free-text quantity string.
// Value and Total are expressed in base units (g, ml or un); Items is the
// multipack count (1 for single items).
type Quantity struct {
	Value float64
	Unit  string
	Items int
	Total float64
}

// Record is a RawRecord enriched by the pipeline stages. Each stage adds
// fields; none removes any. The record is owned by the pipeline until it is
// committed or rejected.
type Record struct {
	Raw RawRecord

	CanonicalCategory    string
	CanonicalSubCategory string

	Name     string
	Brand    string
	Quantity Quantity

	PrimaryPrice        float64
	PrimaryPriceUnit    string
	SecondaryPrice      float64
	SecondaryPriceUnit  string
	BeforeDiscountPrice float64
	HasDiscount         bool

	// ExtractionFailed marks records whose quantity or brand could not be
	// parsed. They still flow through dedup and commit; downstream consumers
	// may filter on it.
	ExtractionFailed bool

	Fingerprint string
	ScrapedAt   time.Time
}
