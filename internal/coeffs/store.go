package coeffs

import (
	"context"
	"sync"

	"github.com/Skufu/CKDRisk/internal/model"
)

// Store loads the coefficient table from its source once and serves the
// cached copy afterwards. Failed loads are not cached.
type Store struct {
	src Source

	mu     sync.Mutex
	table  model.CoefficientTable
	loaded bool
}

func NewStore(src Source) *Store {
	return &Store{src: src}
}

func (s *Store) Load(ctx context.Context) (model.CoefficientTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.table, nil
	}

	raw, err := s.src.Fetch(ctx)
	if err != nil {
		return model.CoefficientTable{}, err
	}
	table, err := Parse(raw)
	if err != nil {
		return model.CoefficientTable{}, err
	}

	s.table = table
	s.loaded = true
	return table, nil
}

// Loaded reports whether a table has been cached.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}
