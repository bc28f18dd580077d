package repository

import (
	"context"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// CommitRecord pairs a normalized record with the commit decision made by the
// deduplication stage. PriceUpdate records target an existing committed row
// and only touch its price columns; all others are plain inserts.
type CommitRecord struct {
	Record      *entity.Record
	PriceUpdate bool
}

// CommitResult reports the outcome of a batch flush.
type CommitResult struct {
	Inserted int
	Updated  int
	Rejected int
}

// ProductRepository is the storage collaborator's batch-commit surface.
// CommitBatch is all-or-nothing: on error no record of the batch is
// persisted.
type ProductRepository interface {
	CommitBatch(ctx context.Context, batch []CommitRecord) (CommitResult, error)
}
