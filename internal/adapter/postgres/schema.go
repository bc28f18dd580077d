package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at startup. Migrations proper are out of
// scope; every statement is IF NOT EXISTS.
const schema = `
CREATE TABLE IF NOT EXISTS products (
	id                    BIGSERIAL PRIMARY KEY,
	fingerprint           TEXT NOT NULL UNIQUE,
	source                TEXT NOT NULL,
	category              TEXT NOT NULL,
	sub_category          TEXT NOT NULL DEFAULT '',
	name                  TEXT NOT NULL,
	brand                 TEXT NOT NULL DEFAULT '',
	quantity_value        DOUBLE PRECISION NOT NULL,
	quantity_unit         TEXT NOT NULL,
	quantity_items        INTEGER NOT NULL,
	quantity_total        DOUBLE PRECISION NOT NULL,
	price                 DOUBLE PRECISION NOT NULL,
	price_unit            TEXT NOT NULL DEFAULT '',
	secondary_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
	secondary_price_unit  TEXT NOT NULL DEFAULT '',
	before_discount_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	has_discount          BOOLEAN NOT NULL DEFAULT FALSE,
	extraction_failed     BOOLEAN NOT NULL DEFAULT FALSE,
	image_url             TEXT NOT NULL DEFAULT '',
	scraped_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_products_source_category ON products (source, category);

CREATE TABLE IF NOT EXISTS ingest_progress (
	source          TEXT NOT NULL,
	day             TEXT NOT NULL,
	status          TEXT NOT NULL,
	completed_units JSONB NOT NULL DEFAULT '[]',
	count           INTEGER NOT NULL DEFAULT 0,
	active_unit     TEXT NOT NULL DEFAULT '',
	version         BIGINT NOT NULL DEFAULT 1,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (source, day)
);

CREATE TABLE IF NOT EXISTS category_inconsistencies (
	id              BIGSERIAL PRIMARY KEY,
	source          TEXT NOT NULL,
	raw_category    TEXT NOT NULL,
	raw_subcategory TEXT NOT NULL DEFAULT '',
	at              TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS skipped_records (
	id         BIGSERIAL PRIMARY KEY,
	source     TEXT NOT NULL,
	name       TEXT NOT NULL,
	raw_fields JSONB NOT NULL DEFAULT '{}',
	reason     TEXT NOT NULL,
	at         TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the tables this service writes to if they do not
// exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
