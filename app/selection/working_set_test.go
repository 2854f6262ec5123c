package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letra-wholesale/order-sheet/models"
)

var (
	shirt = models.Product{ID: 1, Code: "SKU-1", Name: "Red Shirt", SizeCode: "M"}
	pants = models.Product{ID: 2, Code: "SKU-2", Name: "Blue Pants", SizeCode: "L"}
	scarf = models.Product{ID: 3, Name: "Scarf", Name2: "Wool"}
)

func TestAddSumsQuantities(t *testing.T) {
	ws := NewWorkingSet()

	require.NoError(t, ws.Add(shirt, 2))
	require.NoError(t, ws.Add(shirt, 3))

	items := ws.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	ws := NewWorkingSet()

	assert.ErrorIs(t, ws.Add(shirt, 0), ErrInvalidQuantity)
	assert.Zero(t, ws.Len())
}

func TestAddCapsSummedQuantity(t *testing.T) {
	ws := NewWorkingSet()

	assert.ErrorIs(t, ws.Add(shirt, math.MaxInt), ErrInvalidQuantity)
	assert.Zero(t, ws.Len())

	require.NoError(t, ws.Add(shirt, MaxQuantity-1))
	require.NoError(t, ws.Add(shirt, 1))
	assert.ErrorIs(t, ws.Add(shirt, 1), ErrInvalidQuantity)
	assert.ErrorIs(t, ws.Add(shirt, math.MaxInt), ErrInvalidQuantity)
	assert.Equal(t, MaxQuantity, ws.Items()[0].Quantity, "rejected add keeps the prior quantity")
}

func TestSetQuantity(t *testing.T) {
	ws := NewWorkingSet()
	require.NoError(t, ws.Add(shirt, 4))

	require.NoError(t, ws.SetQuantity(shirt.ID, 9))
	assert.Equal(t, 9, ws.Items()[0].Quantity)

	assert.ErrorIs(t, ws.SetQuantity(shirt.ID, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, ws.SetQuantity(shirt.ID, -3), ErrInvalidQuantity)
	assert.ErrorIs(t, ws.SetQuantity(shirt.ID, MaxQuantity+1), ErrInvalidQuantity)
	assert.ErrorIs(t, ws.SetQuantity(shirt.ID, math.MaxInt), ErrInvalidQuantity)
	assert.Equal(t, 9, ws.Items()[0].Quantity, "rejected edit keeps the prior quantity")

	assert.ErrorIs(t, ws.SetQuantity(pants.ID, 2), ErrItemNotFound)
}

func TestRemove(t *testing.T) {
	ws := NewWorkingSet()
	require.NoError(t, ws.Add(shirt, 7))
	require.NoError(t, ws.Add(pants, 1))

	assert.True(t, ws.Remove(shirt.ID), "removal ignores quantity")
	assert.False(t, ws.Remove(shirt.ID))
	assert.Equal(t, 1, ws.Len())
}

func TestReconcile(t *testing.T) {
	ws := NewWorkingSet()
	require.NoError(t, ws.Add(scarf, 1))
	require.NoError(t, ws.Add(shirt, 2))
	require.NoError(t, ws.Add(pants, 3))

	renamed := shirt
	renamed.Name = "Crimson Shirt"
	renamed.SizeCode = "L"
	renamed.ImageURL = "data:image/png;base64,AAAA"

	// pants deleted, shirt edited, catalog order differs from selection order
	ws.Reconcile([]models.Product{renamed, scarf})

	items := ws.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].ID, "selection order is kept")
	assert.Equal(t, int64(1), items[1].ID)
	assert.Equal(t, "Crimson Shirt", items[1].Name)
	assert.Equal(t, "L", items[1].SizeCode)
	assert.Equal(t, "data:image/png;base64,AAAA", items[1].ImageURL)
	assert.Equal(t, 2, items[1].Quantity, "quantity is owned by the selection")
}

func TestReconcileDeletionShrinksByOne(t *testing.T) {
	ws := NewWorkingSet()
	require.NoError(t, ws.Add(shirt, 1))
	require.NoError(t, ws.Add(pants, 1))
	before := ws.Len()

	ws.Reconcile([]models.Product{pants, scarf})

	assert.Equal(t, before-1, ws.Len())
	assert.Equal(t, int64(2), ws.Items()[0].ID)
}

func TestReconcileEmptyCatalogClearsSelection(t *testing.T) {
	ws := NewWorkingSet()
	require.NoError(t, ws.Add(shirt, 1))

	ws.Reconcile(nil)

	assert.Zero(t, ws.Len())
}

func TestItemsIsACopy(t *testing.T) {
	ws := NewWorkingSet()
	require.NoError(t, ws.Add(shirt, 1))

	items := ws.Items()
	items[0].Quantity = 100

	assert.Equal(t, 1, ws.Items()[0].Quantity)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Do("a", func(ws *WorkingSet) error { return ws.Add(shirt, 1) }))
	require.NoError(t, r.Do("b", func(ws *WorkingSet) error { return ws.Add(pants, 2) }))
	assert.Equal(t, 2, r.Len())

	r.ReconcileAll([]models.Product{pants})

	assert.Empty(t, r.Items("a"))
	assert.Len(t, r.Items("b"), 1)
	assert.Empty(t, r.Items("unknown"))

	r.Forget("b")
	assert.Equal(t, 1, r.Len())
}
