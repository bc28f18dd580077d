package memory

import (
	"context"
	"sync"
	"time"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

// ProgressStore is an in-memory ProgressRepository with the same optimistic
// version semantics as the postgres implementation.
type ProgressStore struct {
	mu     sync.Mutex
	states map[string]*entity.ProgressState
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{states: make(map[string]*entity.ProgressState)}
}

func key(source, day string) string { return source + "@" + day }

func (s *ProgressStore) Load(_ context.Context, source, day string) (*entity.ProgressState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[key(source, day)]
	if !ok {
		return nil, nil
	}
	cp := *st
	cp.CompletedUnits = append([]string(nil), st.CompletedUnits...)
	return &cp, nil
}

func (s *ProgressStore) Save(_ context.Context, state *entity.ProgressState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(state.Source, state.Day)
	if cur, ok := s.states[k]; ok && cur.Version != state.Version {
		return entity.ErrProgressConflict
	}

	cp := *state
	cp.CompletedUnits = append([]string(nil), state.CompletedUnits...)
	cp.Version++
	cp.UpdatedAt = time.Now().UTC()
	s.states[k] = &cp
	state.Version = cp.Version
	return nil
}
