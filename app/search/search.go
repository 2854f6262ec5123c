// Package search implements the free-text catalog filter shared by the public
// search panel and the admin product list.
package search

import (
	"strings"

	"github.com/letra-wholesale/order-sheet/models"
)

// Keywords lowercases the query and splits it on runs of whitespace.
func Keywords(query string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(query)))
}

// Filter returns the products in which every keyword occurs in at least one of
// code, name, name2 or sizeCode. Each keyword may match a different field.
// Catalog order is kept. An empty query returns products unchanged.
func Filter(products []models.Product, query string) []models.Product {
	keywords := Keywords(query)
	if len(keywords) == 0 {
		return products
	}

	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if matchesAll(p, keywords) {
			matched = append(matched, p)
		}
	}
	return matched
}

func matchesAll(p models.Product, keywords []string) bool {
	fields := [...]string{
		strings.ToLower(p.Code),
		strings.ToLower(p.Name),
		strings.ToLower(p.Name2),
		strings.ToLower(p.SizeCode),
	}
	for _, kw := range keywords {
		hit := false
		for _, f := range fields {
			if f != "" && strings.Contains(f, kw) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
