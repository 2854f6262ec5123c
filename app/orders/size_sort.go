package orders

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/letra-wholesale/order-sheet/models"
)

// SizeSorter orders selections by size code using locale-aware numeric
// collation, so "S2" sorts before "S10". Empty size codes sort last.
type SizeSorter struct {
	tag language.Tag
}

// NewSizeSorter falls back to the root locale when locale does not parse.
func NewSizeSorter(locale string) SizeSorter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return SizeSorter{tag: tag}
}

// Compare returns -1, 0 or 1. A collator is not safe for concurrent use, so
// callers sorting many values should use Sort or SortSizes instead.
func (s SizeSorter) Compare(a, b string) int {
	return compareSizes(s.collator(), a, b)
}

// Sort returns a size-ordered copy of items. Equal sizes keep selection order.
func (s SizeSorter) Sort(items []models.SelectedProduct) []models.SelectedProduct {
	out := slices.Clone(items)
	c := s.collator()
	slices.SortStableFunc(out, func(a, b models.SelectedProduct) int {
		return compareSizes(c, a.SizeCode, b.SizeCode)
	})
	return out
}

// SortSizes returns a sorted copy of raw size codes.
func (s SizeSorter) SortSizes(sizes []string) []string {
	out := slices.Clone(sizes)
	c := s.collator()
	slices.SortStableFunc(out, func(a, b string) int {
		return compareSizes(c, a, b)
	})
	return out
}

func (s SizeSorter) collator() *collate.Collator {
	return collate.New(s.tag, collate.Numeric)
}

func compareSizes(c *collate.Collator, a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	return c.CompareString(a, b)
}
