package repository

import "context"

// FingerprintIndex answers existence queries against committed fingerprint
// history. Existing returns, for the subset of fps already committed, the
// primary price stored with each — the dedup stage needs it to tell a pure
// duplicate from a price-update candidate.
type FingerprintIndex interface {
	Existing(ctx context.Context, fps []string) (map[string]float64, error)
}

// FingerprintEvictor is implemented by indexes that cache committed prices.
// Invalidate drops the entry for fp so the next lookup reads the updated
// committed price instead of a stale cached one.
type FingerprintEvictor interface {
	Invalidate(ctx context.Context, fp string) error
}
