package repository

import (
	"context"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// ProgressRepository persists per (source, day) scrape progress with
// optimistic concurrency. Save must fail with entity.ErrProgressConflict
// when the stored version no longer matches the one being written, so that
// two workers finishing units for the same source cannot double-count.
type ProgressRepository interface {
	// Load returns the state for (source, day), or nil when no row exists.
	Load(ctx context.Context, source, day string) (*entity.ProgressState, error)
	// Save writes the state, incrementing its version atomically.
	Save(ctx context.Context, state *entity.ProgressState) error
}
