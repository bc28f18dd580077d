package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/apecorreia/ProductScraper/internal/entity"
	"github.com/apecorreia/ProductScraper/internal/repository"
)

// ErrCommitFailed is returned by ProductStore when a simulated failure is
// armed via FailNext.
var ErrCommitFailed = errors.New("simulated commit failure")

// ProductStore is an in-memory storage collaborator implementing both the
// batch-commit surface and the committed-fingerprint existence query.
type ProductStore struct {
	mu       sync.Mutex
	products map[string]*entity.Record // keyed by fingerprint

	// FailNext makes the next N CommitBatch calls fail atomically, for
	// exercising retry and spill paths.
	FailNext int
	Commits  int
}

func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]*entity.Record)}
}

// CommitBatch applies the batch all-or-nothing.
func (s *ProductStore) CommitBatch(_ context.Context, batch []repository.CommitRecord) (repository.CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNext > 0 {
		s.FailNext--
		return repository.CommitResult{}, ErrCommitFailed
	}

	var res repository.CommitResult
	for _, cr := range batch {
		fp := cr.Record.Fingerprint
		_, exists := s.products[fp]
		switch {
		case cr.PriceUpdate && exists:
			s.products[fp] = cr.Record
			res.Updated++
		case !exists:
			s.products[fp] = cr.Record
			res.Inserted++
		default:
			res.Rejected++
		}
	}
	s.Commits++
	return res, nil
}

// Existing returns the committed subset of fps with their primary prices.
func (s *ProductStore) Existing(_ context.Context, fps []string) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]float64)
	for _, fp := range fps {
		if r, ok := s.products[fp]; ok {
			out[fp] = r.PrimaryPrice
		}
	}
	return out, nil
}

// Len returns the number of committed rows.
func (s *ProductStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

// Fingerprints returns all committed fingerprints.
func (s *ProductStore) Fingerprints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.products))
	for fp := range s.products {
		out = append(out, fp)
	}
	return out
}

// Get returns a committed record by fingerprint.
func (s *ProductStore) Get(fp string) (*entity.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.products[fp]
	return r, ok
}
