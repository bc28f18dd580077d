package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// DiagnosticsRepoImpl provides a concrete implementation for the
// DiagnosticsRepository interface using PostgreSQL.
type DiagnosticsRepoImpl struct {
	db *pgxpool.Pool
}

// NewDiagnosticsRepo creates a new instance of DiagnosticsRepoImpl.
func NewDiagnosticsRepo(db *pgxpool.Pool) *DiagnosticsRepoImpl {
	return &DiagnosticsRepoImpl{db: db}
}

// RecordInconsistency stores an unmapped raw category sighting.
func (r *DiagnosticsRepoImpl) RecordInconsistency(ctx context.Context, d entity.CategoryInconsistency) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO category_inconsistencies (source, raw_category, raw_subcategory, at)
		VALUES ($1, $2, $3, $4);
	`, d.Source, d.RawCategory, d.RawSubCategory, d.At)
	return err
}

// RecordSkipped stores an extraction-failure diagnostic.
func (r *DiagnosticsRepoImpl) RecordSkipped(ctx context.Context, d entity.SkippedRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO skipped_records (source, name, raw_fields, reason, at)
		VALUES ($1, $2, $3, $4, $5);
	`, d.Source, d.Name, d.RawFields, d.Reason, d.At)
	return err
}
