package source

import (
	"context"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// Feed is the scraping collaborator's contract with the pipeline: a set of
// work units (categories) per source, and for each unit an ordered stream of
// raw records delivered through emit. Returning from Fetch is the unit-end
// signal; an exhausted Units slice is the terminal signal.
//
// Transport, rendering and retry concerns live behind this interface and
// are opaque to the pipeline.
type Feed interface {
	// Source identifies the retailer this feed scrapes.
	Source() string
	// Units lists the known work units for a run.
	Units(ctx context.Context) ([]string, error)
	// Fetch scrapes one unit, emitting records in stream order. An emit
	// error must abort the fetch and be returned.
	Fetch(ctx context.Context, unit string, emit func(entity.RawRecord) error) error
}
