package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apecorreia/ProductScraper/internal/repository"
)

const insertProduct = `
	INSERT INTO products (
		fingerprint, source, category, sub_category, name, brand,
		quantity_value, quantity_unit, quantity_items, quantity_total,
		price, price_unit, secondary_price, secondary_price_unit,
		before_discount_price, has_discount, extraction_failed,
		image_url, scraped_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
	ON CONFLICT (fingerprint) DO NOTHING;
`

const upsertProductPrice = `
	INSERT INTO products (
		fingerprint, source, category, sub_category, name, brand,
		quantity_value, quantity_unit, quantity_items, quantity_total,
		price, price_unit, secondary_price, secondary_price_unit,
		before_discount_price, has_discount, extraction_failed,
		image_url, scraped_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
	ON CONFLICT (fingerprint) DO UPDATE SET
		price = EXCLUDED.price,
		price_unit = EXCLUDED.price_unit,
		secondary_price = EXCLUDED.secondary_price,
		secondary_price_unit = EXCLUDED.secondary_price_unit,
		before_discount_price = EXCLUDED.before_discount_price,
		has_discount = EXCLUDED.has_discount,
		scraped_at = EXCLUDED.scraped_at,
		updated_at = NOW();
`

// ProductRepoImpl provides a concrete implementation for the
// ProductRepository interface using PostgreSQL.
type ProductRepoImpl struct {
	db *pgxpool.Pool
}

// NewProductRepo creates a new instance of ProductRepoImpl.
func NewProductRepo(db *pgxpool.Pool) *ProductRepoImpl {
	return &ProductRepoImpl{db: db}
}

// CommitBatch writes the whole batch inside a single transaction. Plain
// records insert with ON CONFLICT DO NOTHING; price-update records upsert
// their price columns. Either every record lands or none does.
func (r *ProductRepoImpl) CommitBatch(ctx context.Context, batch []repository.CommitRecord) (repository.CommitResult, error) {
	var res repository.CommitResult

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("beginning commit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, cr := range batch {
		rec := cr.Record
		query := insertProduct
		if cr.PriceUpdate {
			query = upsertProductPrice
		}
		b.Queue(query,
			rec.Fingerprint,
			rec.Raw.Source,
			rec.CanonicalCategory,
			rec.CanonicalSubCategory,
			rec.Name,
			rec.Brand,
			rec.Quantity.Value,
			rec.Quantity.Unit,
			rec.Quantity.Items,
			rec.Quantity.Total,
			rec.PrimaryPrice,
			rec.PrimaryPriceUnit,
			rec.SecondaryPrice,
			rec.SecondaryPriceUnit,
			rec.BeforeDiscountPrice,
			rec.HasDiscount,
			rec.ExtractionFailed,
			rec.Raw.ImageURL,
			rec.ScrapedAt,
		)
	}

	br := tx.SendBatch(ctx, b)
	for _, cr := range batch {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return repository.CommitResult{}, fmt.Errorf("committing record %s: %w", cr.Record.Fingerprint, err)
		}
		switch {
		case tag.RowsAffected() == 0:
			res.Rejected++
		case cr.PriceUpdate:
			res.Updated++
		default:
			res.Inserted++
		}
	}
	if err := br.Close(); err != nil {
		return repository.CommitResult{}, fmt.Errorf("closing batch results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return repository.CommitResult{}, fmt.Errorf("committing batch: %w", err)
	}
	return res, nil
}
