package pipeline

import (
	"context"

	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/repository"
)

// Decision is the outcome of a deduplication check.
type Decision int

const (
	// DecisionAdmit admits a fresh fingerprint for commit.
	DecisionAdmit Decision = iota
	// DecisionDropInRun drops an exact repeat seen earlier in this run.
	DecisionDropInRun
	// DecisionReplaceInRun replaces the buffered occurrence with this one:
	// same fingerprint, new price, last-seen-in-run wins.
	DecisionReplaceInRun
	// DecisionDropCommitted drops a repeat of an already-committed record
	// with an unchanged price.
	DecisionDropCommitted
	// DecisionPriceUpdate admits the record as a price-update candidate
	// against an already-committed row.
	DecisionPriceUpdate
)

// Deduplicator computes fingerprints and filters repeats. Its existence view
// spans records committed in previous runs (through the committed index) and
// records admitted earlier in this run (an in-memory map, populated before
// commit so intra-batch repeats are caught).
//
// A Deduplicator belongs to a single worker; the per-source record stream is
// ordered and non-concurrent, which is what makes last-seen-wins
// deterministic.
type Deduplicator struct {
	committed repository.FingerprintIndex
	seen      map[string]float64 // in-run fingerprint -> last admitted price
}

func NewDeduplicator(committed repository.FingerprintIndex) *Deduplicator {
	return &Deduplicator{
		committed: committed,
		seen:      make(map[string]float64),
	}
}

// Check assigns r its fingerprint and decides its fate. Admitted
// fingerprints (including price updates) are recorded in the in-run index
// immediately, before any commit happens.
func (d *Deduplicator) Check(ctx context.Context, r *entity.Record) (Decision, error) {
	r.Fingerprint = entity.ComputeFingerprint(r)

	if price, ok := d.seen[r.Fingerprint]; ok {
		if price == r.PrimaryPrice {
			return DecisionDropInRun, nil
		}
		d.seen[r.Fingerprint] = r.PrimaryPrice
		return DecisionReplaceInRun, nil
	}

	existing, err := d.committed.Existing(ctx, []string{r.Fingerprint})
	if err != nil {
		return DecisionDropInRun, err
	}
	if price, ok := existing[r.Fingerprint]; ok {
		if price == r.PrimaryPrice {
			return DecisionDropCommitted, nil
		}
		d.seen[r.Fingerprint] = r.PrimaryPrice
		return DecisionPriceUpdate, nil
	}

	d.seen[r.Fingerprint] = r.PrimaryPrice
	return DecisionAdmit, nil
}

// SeenInRun returns how many distinct fingerprints this run has admitted.
func (d *Deduplicator) SeenInRun() int {
	return len(d.seen)
}
