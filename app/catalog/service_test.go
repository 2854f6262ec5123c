package catalog

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letra-wholesale/order-sheet/models"
)

// --- Mock Store ---

type MockCatalogStore struct {
	State   *models.CatalogState
	LoadErr error
	SaveErr error

	saveCalls int
}

func (m *MockCatalogStore) Load(_ context.Context) (models.CatalogState, error) {
	if m.LoadErr != nil {
		return models.CatalogState{}, m.LoadErr
	}
	if m.State == nil {
		return models.CatalogState{}, models.ErrStateNotFound
	}
	return m.State.Clone(), nil
}

func (m *MockCatalogStore) Save(_ context.Context, state models.CatalogState) error {
	m.saveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cloned := state.Clone()
	m.State = &cloned
	return nil
}

func (m *MockCatalogStore) Close() error {
	return nil
}

// --- Helpers ---

func newSeededService(t *testing.T, products ...models.Product) (*Service, *MockCatalogStore) {
	t.Helper()
	state := models.CatalogState{Products: products}
	state.NextID = state.MaxID() + 1
	store := &MockCatalogStore{State: &state}
	return NewService(store, nil, nil), store
}

func codes(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Code
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

// --- Tests ---

func TestAddOne(t *testing.T) {
	ctx := context.Background()

	t.Run("Case-insensitive collision is rejected", func(t *testing.T) {
		svc, store := newSeededService(t)

		_, err := svc.AddOne(ctx, models.Draft{Code: "ABC", Name: "first"})
		require.NoError(t, err)
		_, err = svc.AddOne(ctx, models.Draft{Code: " abc ", Name: "second"})

		assert.ErrorIs(t, err, ErrDuplicateCode)
		assert.Len(t, store.State.Products, 1)
		assert.Equal(t, 1, store.saveCalls, "a rejected draft must not touch the store")
	})

	t.Run("Empty codes never collide", func(t *testing.T) {
		svc, store := newSeededService(t)

		for i := 0; i < 5; i++ {
			_, err := svc.AddOne(ctx, models.Draft{Code: "  ", Name: "Scarf", Name2: "Wool"})
			require.NoError(t, err)
		}
		assert.Len(t, store.State.Products, 5)
	})

	t.Run("Fresh id and empty image", func(t *testing.T) {
		svc, store := newSeededService(t, models.Product{ID: 4, Code: "A", Name: "a", ImageURL: "x"})

		p, err := svc.AddOne(ctx, models.Draft{Code: "B", Name: "b", SizeCode: "M"})
		require.NoError(t, err)

		assert.Equal(t, int64(5), p.ID)
		assert.Empty(t, p.ImageURL)
		assert.Equal(t, int64(6), store.State.NextID)
		assert.Equal(t, []string{"A", "B"}, codes(store.State.Products))
	})

	t.Run("Never-written store starts at id 1", func(t *testing.T) {
		store := &MockCatalogStore{}
		svc := NewService(store, nil, nil)

		p, err := svc.AddOne(ctx, models.Draft{Code: "A", Name: "a"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.ID)
	})

	t.Run("Unreadable store aborts", func(t *testing.T) {
		store := &MockCatalogStore{LoadErr: errors.New("disk gone")}
		svc := NewService(store, nil, nil)

		_, err := svc.AddOne(ctx, models.Draft{Code: "A", Name: "a"})
		assert.ErrorIs(t, err, ErrCatalogUnavailable)
		assert.Zero(t, store.saveCalls)
	})

	t.Run("Write failure is absorbed", func(t *testing.T) {
		svc, store := newSeededService(t)
		store.SaveErr = errors.New("quota exceeded")

		p, err := svc.AddOne(ctx, models.Draft{Code: "A", Name: "a"})
		assert.NoError(t, err)
		assert.Equal(t, int64(1), p.ID)
	})
}

func TestAddMany(t *testing.T) {
	ctx := context.Background()

	t.Run("Duplicate within batch is skipped and the batch continues", func(t *testing.T) {
		svc, store := newSeededService(t)

		result, err := svc.AddMany(ctx, []models.Draft{
			{Code: "X", Name: "A"},
			{Code: "x", Name: "B"},
			{Code: "Y", Name: "C"},
		})
		require.NoError(t, err)

		assert.Equal(t, 2, result.AddedCount)
		assert.Equal(t, []string{"x"}, result.DuplicateCodes)
		assert.Equal(t, []string{"X", "Y"}, codes(store.State.Products))
		assert.Equal(t, []int64{1, 2}, []int64{store.State.Products[0].ID, store.State.Products[1].ID})
	})

	t.Run("Collision with existing catalog", func(t *testing.T) {
		svc, store := newSeededService(t, models.Product{ID: 10, Code: "SKU-001", Name: "Tee"})

		result, err := svc.AddMany(ctx, []models.Draft{
			{Code: "sku-001 ", Name: "Again"},
			{Code: "", Name: "Bag", Name2: "Black"},
			{Code: "", Name: "Bag", Name2: "Black"},
		})
		require.NoError(t, err)

		assert.Equal(t, 2, result.AddedCount)
		assert.Equal(t, []string{"sku-001 "}, result.DuplicateCodes)
		assert.Len(t, store.State.Products, 3)
		assert.Equal(t, int64(11), result.Added[0].ID)
		assert.Equal(t, int64(12), result.Added[1].ID)
	})

	t.Run("Nothing accepted leaves the store untouched", func(t *testing.T) {
		svc, store := newSeededService(t, models.Product{ID: 1, Code: "A", Name: "a"})

		result, err := svc.AddMany(ctx, []models.Draft{{Code: "a", Name: "dup"}})
		require.NoError(t, err)

		assert.Zero(t, result.AddedCount)
		assert.Empty(t, result.Added)
		assert.Zero(t, store.saveCalls)
	})

	t.Run("Unreadable store aborts", func(t *testing.T) {
		store := &MockCatalogStore{LoadErr: errors.New("corrupt")}
		svc := NewService(store, nil, nil)

		result, err := svc.AddMany(ctx, []models.Draft{{Code: "A", Name: "a"}})
		assert.ErrorIs(t, err, ErrCatalogUnavailable)
		assert.Zero(t, result.AddedCount)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	seed := []models.Product{
		{ID: 1, Code: "SKU-1", Name: "Red Shirt", Name2: "Short", SizeCode: "M"},
		{ID: 2, Code: "SKU-2", Name: "Blue Pants"},
	}

	testCases := []struct {
		name        string
		id          int64
		patch       models.Patch
		expectedErr error
		check       func(t *testing.T, store *MockCatalogStore)
	}{
		{
			name:  "Merge keeps absent fields",
			id:    1,
			patch: models.Patch{Name: strPtr("Crimson Shirt")},
			check: func(t *testing.T, store *MockCatalogStore) {
				p := store.State.Products[0]
				assert.Equal(t, "Crimson Shirt", p.Name)
				assert.Equal(t, "Short", p.Name2)
				assert.Equal(t, "M", p.SizeCode)
			},
		},
		{
			name:  "Own code in another case is not a collision",
			id:    1,
			patch: models.Patch{Code: strPtr("sku-1")},
			check: func(t *testing.T, store *MockCatalogStore) {
				assert.Equal(t, "sku-1", store.State.Products[0].Code)
			},
		},
		{
			name:        "Collision with other product",
			id:          1,
			patch:       models.Patch{Code: strPtr(" SKU-2")},
			expectedErr: ErrDuplicateCode,
			check: func(t *testing.T, store *MockCatalogStore) {
				assert.Equal(t, "SKU-1", store.State.Products[0].Code)
				assert.Zero(t, store.saveCalls)
			},
		},
		{
			name:  "Clearing the code skips the check",
			id:    2,
			patch: models.Patch{Code: strPtr(""), Name2: strPtr("Denim")},
			check: func(t *testing.T, store *MockCatalogStore) {
				assert.Equal(t, "", store.State.Products[1].Code)
			},
		},
		{
			name:        "Unknown id",
			id:          99,
			patch:       models.Patch{Name: strPtr("ghost")},
			expectedErr: ErrProductNotFound,
			check: func(t *testing.T, store *MockCatalogStore) {
				assert.Zero(t, store.saveCalls)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			svc, store := newSeededService(t, seed...)

			// Act
			_, err := svc.Update(ctx, tc.id, tc.patch)

			// Assert
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			if tc.check != nil {
				tc.check(t, store)
			}
		})
	}
}

func TestUpdateImage(t *testing.T) {
	ctx := context.Background()
	svc, store := newSeededService(t,
		models.Product{ID: 1, Code: "A", Name: "a"},
		models.Product{ID: 2, Code: "a-dup-looking", Name: "b"},
	)

	p, err := svc.UpdateImage(ctx, 1, "data:image/png;base64,iVBORw0KGgo=")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", p.ImageURL)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", store.State.Products[0].ImageURL)

	_, err = svc.UpdateImage(ctx, 42, "x")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	seed := []models.Product{
		{ID: 1, Code: "A", Name: "a"},
		{ID: 2, Code: "B", Name: "b"},
		{ID: 3, Code: "C", Name: "c"},
	}

	t.Run("DeleteOne", func(t *testing.T) {
		svc, store := newSeededService(t, seed...)

		removed, err := svc.DeleteOne(ctx, 2)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, []string{"A", "C"}, codes(store.State.Products))

		removed, err = svc.DeleteOne(ctx, 2)
		require.NoError(t, err)
		assert.False(t, removed, "deleting a missing id is a no-op")
		assert.Equal(t, 1, store.saveCalls)
	})

	t.Run("DeleteMany", func(t *testing.T) {
		svc, store := newSeededService(t, seed...)

		removed, err := svc.DeleteMany(ctx, []int64{1, 3, 77})
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, []string{"B"}, codes(store.State.Products))

		removed, err = svc.DeleteMany(ctx, []int64{77})
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("DeleteAll keeps the id counter", func(t *testing.T) {
		svc, store := newSeededService(t, seed...)

		require.NoError(t, svc.DeleteAll(ctx))
		assert.Empty(t, store.State.Products)
		assert.Equal(t, int64(4), store.State.NextID)

		p, err := svc.AddOne(ctx, models.Draft{Code: "A", Name: "reborn"})
		require.NoError(t, err)
		assert.Equal(t, int64(4), p.ID, "ids are never reused")
	})
}

func TestIDsAreMonotonicAfterDeletingNewest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSeededService(t)

	first, err := svc.AddOne(ctx, models.Draft{Code: "A", Name: "a"})
	require.NoError(t, err)
	_, err = svc.DeleteOne(ctx, first.ID)
	require.NoError(t, err)

	second, err := svc.AddOne(ctx, models.Draft{Code: "B", Name: "b"})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("Unreadable store yields empty catalog", func(t *testing.T) {
		svc := NewService(&MockCatalogStore{LoadErr: errors.New("corrupt json")}, nil, nil)
		products := svc.List(ctx)
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})

	t.Run("Get by id", func(t *testing.T) {
		svc, _ := newSeededService(t, models.Product{ID: 5, Code: "E", Name: "e"})
		p, ok := svc.Get(ctx, 5)
		assert.True(t, ok)
		assert.Equal(t, "E", p.Code)

		_, ok = svc.Get(ctx, 6)
		assert.False(t, ok)
	})
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := &MockCatalogStore{}
	svc := NewService(store, nil, nil)

	seeded, err := svc.Seed(ctx, models.DefaultCatalog())
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, int64(7), store.State.NextID)

	seeded, err = svc.Seed(ctx, models.DefaultCatalog())
	require.NoError(t, err)
	assert.False(t, seeded, "an initialised store is never reseeded")

	require.NoError(t, svc.DeleteAll(ctx))
	seeded, err = svc.Seed(ctx, models.DefaultCatalog())
	require.NoError(t, err)
	assert.False(t, seeded, "an emptied catalog stays empty")
}
