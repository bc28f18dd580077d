package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// ProgressRepoImpl provides a concrete implementation for the
// ProgressRepository interface using PostgreSQL. Writes are guarded by an
// optimistic version column; a lost race surfaces as
// entity.ErrProgressConflict for the tracker to retry.
type ProgressRepoImpl struct {
	db *pgxpool.Pool
}

// NewProgressRepo creates a new instance of ProgressRepoImpl.
func NewProgressRepo(db *pgxpool.Pool) *ProgressRepoImpl {
	return &ProgressRepoImpl{db: db}
}

// Load returns the persisted state for (source, day), or nil when the pair
// has never been written. A row that cannot be decoded is reported as
// entity.ErrProgressCorrupted so the caller can abort that source alone.
func (r *ProgressRepoImpl) Load(ctx context.Context, source, day string) (*entity.ProgressState, error) {
	row := r.db.QueryRow(ctx, `
		SELECT status, completed_units, count, active_unit, version, updated_at
		FROM ingest_progress
		WHERE source = $1 AND day = $2;
	`, source, day)

	st := entity.ProgressState{Source: source, Day: day}
	var status string
	var completedJSON []byte
	err := row.Scan(&status, &completedJSON, &st.Count, &st.ActiveUnit, &st.Version, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		// Transport and scan failures are transient, not corruption.
		return nil, fmt.Errorf("loading progress state: %w", err)
	}
	st.Status = entity.ProgressStatus(status)
	if err := decodeState(&st, completedJSON); err != nil {
		return nil, err
	}
	return &st, nil
}

// decodeState validates a scanned progress row. Undecodable or inconsistent
// persisted data is reported as entity.ErrProgressCorrupted, which aborts
// the affected source only.
func decodeState(st *entity.ProgressState, completedJSON []byte) error {
	if err := json.Unmarshal(completedJSON, &st.CompletedUnits); err != nil {
		return fmt.Errorf("%w: completed_units: %v", entity.ErrProgressCorrupted, err)
	}
	if !st.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", entity.ErrProgressCorrupted, st.Status)
	}
	return nil
}

// Save persists state compare-and-swap style. Version 0 means the caller
// read no row, so Save inserts; otherwise it updates the exact version it
// read. On success the caller's Version is advanced to the stored one.
func (r *ProgressRepoImpl) Save(ctx context.Context, state *entity.ProgressState) error {
	completedJSON, err := json.Marshal(state.CompletedUnits)
	if err != nil {
		return err
	}
	if state.CompletedUnits == nil {
		completedJSON = []byte("[]")
	}

	if state.Version == 0 {
		tag, err := r.db.Exec(ctx, `
			INSERT INTO ingest_progress (source, day, status, completed_units, count, active_unit, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 1, NOW())
			ON CONFLICT (source, day) DO NOTHING;
		`, state.Source, state.Day, string(state.Status), completedJSON, state.Count, state.ActiveUnit)
		if err != nil {
			return fmt.Errorf("inserting progress: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return entity.ErrProgressConflict
		}
		state.Version = 1
		return nil
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE ingest_progress
		SET status = $3, completed_units = $4, count = $5, active_unit = $6,
		    version = version + 1, updated_at = NOW()
		WHERE source = $1 AND day = $2 AND version = $7;
	`, state.Source, state.Day, string(state.Status), completedJSON, state.Count, state.ActiveUnit, state.Version)
	if err != nil {
		return fmt.Errorf("updating progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrProgressConflict
	}
	state.Version++
	return nil
}
