package memory

import (
	"context"
	"sync"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// DiagnosticsStore keeps diagnostic events in memory. Used in tests and as
// a sink of last resort when the database is unavailable at startup.
type DiagnosticsStore struct {
	mu              sync.Mutex
	Inconsistencies []entity.CategoryInconsistency
	Skipped         []entity.SkippedRecord
}

func NewDiagnosticsStore() *DiagnosticsStore {
	return &DiagnosticsStore{}
}

func (s *DiagnosticsStore) RecordInconsistency(_ context.Context, d entity.CategoryInconsistency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Inconsistencies = append(s.Inconsistencies, d)
	return nil
}

func (s *DiagnosticsStore) RecordSkipped(_ context.Context, d entity.SkippedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped = append(s.Skipped, d)
	return nil
}
