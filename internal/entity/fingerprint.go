package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeFingerprint derives the content identity of a record from its
// source, canonical category, normalized name and normalized quantity.
// Two listings that differ only in price (or formatting noise in the name)
// collapse to the same fingerprint.
func ComputeFingerprint(r *Record) string {
	key := strings.Join([]string{
		strings.ToLower(r.Raw.Source),
		strings.ToLower(r.CanonicalCategory),
		normalizeName(r.Name),
		fmt.Sprintf("%gx%g%s", float64(r.Quantity.Items), r.Quantity.Value, r.Quantity.Unit),
	}, "|")

	h := sha256.New()
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeName collapses whitespace and case so that cosmetic formatting
// differences between scrapes of the same listing do not change identity.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
