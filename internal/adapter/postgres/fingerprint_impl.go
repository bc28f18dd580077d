package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// existingChunkSize bounds the ANY($1) array per query.
const existingChunkSize = 500

// FingerprintIndexImpl answers committed-fingerprint existence queries
// against the products table.
type FingerprintIndexImpl struct {
	db *pgxpool.Pool
}

// NewFingerprintIndex creates a new instance of FingerprintIndexImpl.
func NewFingerprintIndex(db *pgxpool.Pool) *FingerprintIndexImpl {
	return &FingerprintIndexImpl{db: db}
}

// Existing returns the subset of fps already committed, mapped to their
// current price. Large inputs are queried in chunks.
func (r *FingerprintIndexImpl) Existing(ctx context.Context, fps []string) (map[string]float64, error) {
	out := make(map[string]float64, len(fps))
	for start := 0; start < len(fps); start += existingChunkSize {
		end := start + existingChunkSize
		if end > len(fps) {
			end = len(fps)
		}

		rows, err := r.db.Query(ctx,
			`SELECT fingerprint, price FROM products WHERE fingerprint = ANY($1);`,
			fps[start:end])
		if err != nil {
			return nil, fmt.Errorf("querying committed fingerprints: %w", err)
		}
		for rows.Next() {
			var fp string
			var price float64
			if err := rows.Scan(&fp, &price); err != nil {
				rows.Close()
				return nil, err
			}
			out[fp] = price
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
