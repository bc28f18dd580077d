package repository

import "context"

// SpillWriter persists a batch that exhausted its flush retries to a local
// recovery log so the run can move on. Returns the location written for the
// operator warning.
type SpillWriter interface {
	Spill(ctx context.Context, batch []CommitRecord) (string, error)
}
