package selection

import (
	"github.com/pkg/errors"

	"github.com/letra-wholesale/order-sheet/models"
)

// MaxQuantity bounds a single entry, including the sum of repeated adds.
const MaxQuantity = 99999

var (
	// ErrInvalidQuantity is returned for quantities outside 1..MaxQuantity.
	// The prior quantity is kept.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99999")
	// ErrItemNotFound is returned when the selection holds no entry for the id.
	ErrItemNotFound = errors.New("product is not in the selection")
)

// WorkingSet is an ordered list of selected products for one session.
// It is not safe for concurrent use; Registry serialises access.
type WorkingSet struct {
	items []models.SelectedProduct
}

func NewWorkingSet() *WorkingSet {
	return &WorkingSet{}
}

// Add appends p with quantity q, or adds q to the existing entry for p.ID.
func (ws *WorkingSet) Add(p models.Product, q int) error {
	if q < 1 || q > MaxQuantity {
		return ErrInvalidQuantity
	}
	if i := ws.indexOf(p.ID); i >= 0 {
		if ws.items[i].Quantity > MaxQuantity-q {
			return ErrInvalidQuantity
		}
		ws.items[i].Quantity += q
		return nil
	}
	ws.items = append(ws.items, models.SelectedProduct{Product: p, Quantity: q})
	return nil
}

// Remove drops the entry for id and reports whether there was one.
func (ws *WorkingSet) Remove(id int64) bool {
	i := ws.indexOf(id)
	if i < 0 {
		return false
	}
	ws.items = append(ws.items[:i], ws.items[i+1:]...)
	return true
}

// SetQuantity replaces the quantity for id.
func (ws *WorkingSet) SetQuantity(id int64, q int) error {
	if q < 1 || q > MaxQuantity {
		return ErrInvalidQuantity
	}
	i := ws.indexOf(id)
	if i < 0 {
		return ErrItemNotFound
	}
	ws.items[i].Quantity = q
	return nil
}

// Reconcile re-derives the set from a fresh catalog snapshot: entries whose
// product still exists take every catalog field except quantity, the rest are
// dropped. Surviving entries keep their order.
func (ws *WorkingSet) Reconcile(catalog []models.Product) {
	byID := make(map[int64]models.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	kept := ws.items[:0]
	for _, item := range ws.items {
		p, ok := byID[item.ID]
		if !ok {
			continue
		}
		kept = append(kept, models.SelectedProduct{Product: p, Quantity: item.Quantity})
	}
	// clear the tail so dropped entries don't pin image data
	for i := len(kept); i < len(ws.items); i++ {
		ws.items[i] = models.SelectedProduct{}
	}
	ws.items = kept
}

// Items returns a copy of the entries in selection order.
func (ws *WorkingSet) Items() []models.SelectedProduct {
	out := make([]models.SelectedProduct, len(ws.items))
	copy(out, ws.items)
	return out
}

func (ws *WorkingSet) Len() int {
	return len(ws.items)
}

func (ws *WorkingSet) Clear() {
	ws.items = nil
}

func (ws *WorkingSet) indexOf(id int64) int {
	for i, item := range ws.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
