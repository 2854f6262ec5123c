package models

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrStateNotFound is returned by a store that has never been written to.
var ErrStateNotFound = errors.New("catalog state not found")

// CatalogStore persists the whole catalog as one record.
// Implementations never interpret business rules.
type CatalogStore interface {
	Load(ctx context.Context) (CatalogState, error)
	Save(ctx context.Context, state CatalogState) error
	Close() error
}

// MemoryStore keeps the catalog in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	state *CatalogState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (CatalogState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return CatalogState{}, ErrStateNotFound
	}
	return s.state.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, state CatalogState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloned := state.Clone()
	s.state = &cloned
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// DefaultCatalog returns the products a fresh installation starts with.
func DefaultCatalog() []Product {
	return []Product{
		{ID: 1, Code: "SKU-001", Name: "オーガニックコットンTシャツ", Name2: "半袖", SizeCode: "M"},
		{ID: 2, Code: "SKU-002", Name: "リネンブレンドパンツ", Name2: "アンクル丈", SizeCode: "L"},
		{ID: 3, Code: "SKU-003", Name: "シルクカシミヤセーター", SizeCode: "S"},
		{ID: 4, Code: "ACC-001", Name: "レザーベルト", Name2: "バックル", SizeCode: "FREE"},
		{ID: 5, Code: "ACC-002", Name: "ウールマフラー"},
		{ID: 6, Code: "BG-010", Name: "BAG ROMBO", Name2: "BLK XS", SizeCode: "XS"},
	}
}
