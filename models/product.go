package models

import (
	"strings"

	"github.com/pkg/errors"
)

// Product represents a product in the catalog.
// Code is unique (case-insensitively, trimmed) among products that have one.
type Product struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Code     string `gorm:"index;not null;default:''" json:"code"`
	Name     string `gorm:"not null" json:"name"`
	Name2    string `json:"name2,omitempty"`
	SizeCode string `json:"sizeCode,omitempty"`
	ImageURL string `gorm:"type:text" json:"imageUrl,omitempty"`
	Position int    `gorm:"index;not null" json:"-"`
}

func (p *Product) TableName() string {
	return "products"
}

// HasCode reports whether the product takes part in code uniqueness.
func (p Product) HasCode() bool {
	return NormalizeCode(p.Code) != ""
}

// SelectedProduct is a product in an order selection together with its quantity.
type SelectedProduct struct {
	Product
	Quantity int `json:"quantity"`
}

// Draft is a product payload that has not been assigned an id yet.
type Draft struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Name2    string `json:"name2"`
	SizeCode string `json:"sizeCode"`
}

var (
	// ErrCodeRequiresName is returned when a coded product has no name.
	ErrCodeRequiresName = errors.New("a product with a code must have a name")
	// ErrUncodedRequiresBothNames is returned when an uncoded product lacks name or name2.
	ErrUncodedRequiresBothNames = errors.New("a product without a code must have both name and name2")
)

// Validate checks the construction precondition shared by create, update and import.
func (d Draft) Validate() error {
	code := strings.TrimSpace(d.Code)
	name := strings.TrimSpace(d.Name)
	name2 := strings.TrimSpace(d.Name2)

	if code != "" {
		if name == "" {
			return ErrCodeRequiresName
		}
		return nil
	}
	if name == "" || name2 == "" {
		return ErrUncodedRequiresBothNames
	}
	return nil
}

// Trim returns the draft with surrounding whitespace removed from every field.
func (d Draft) Trim() Draft {
	return Draft{
		Code:     strings.TrimSpace(d.Code),
		Name:     strings.TrimSpace(d.Name),
		Name2:    strings.TrimSpace(d.Name2),
		SizeCode: strings.TrimSpace(d.SizeCode),
	}
}

// Product builds the catalog record for the draft under the given id.
func (d Draft) Product(id int64) Product {
	return Product{
		ID:       id,
		Code:     d.Code,
		Name:     d.Name,
		Name2:    d.Name2,
		SizeCode: d.SizeCode,
	}
}

// Patch is a partial product update. Nil fields keep their current value.
type Patch struct {
	Code     *string `json:"code,omitempty"`
	Name     *string `json:"name,omitempty"`
	Name2    *string `json:"name2,omitempty"`
	SizeCode *string `json:"sizeCode,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// Apply returns p with the patched fields overwritten.
func (pt Patch) Apply(p Product) Product {
	if pt.Code != nil {
		p.Code = *pt.Code
	}
	if pt.Name != nil {
		p.Name = *pt.Name
	}
	if pt.Name2 != nil {
		p.Name2 = *pt.Name2
	}
	if pt.SizeCode != nil {
		p.SizeCode = *pt.SizeCode
	}
	if pt.ImageURL != nil {
		p.ImageURL = *pt.ImageURL
	}
	return p
}

// Draft returns the identity-relevant fields of p as a draft, for validation.
func (p Product) Draft() Draft {
	return Draft{Code: p.Code, Name: p.Name, Name2: p.Name2, SizeCode: p.SizeCode}
}

// NormalizeCode returns the identity key of a product code: trimmed and lowercased.
// An empty result means the product is exempt from uniqueness.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// CatalogState is the single persisted record: the product set plus the id counter.
type CatalogState struct {
	Products []Product `json:"products"`
	NextID   int64     `json:"nextId"`
}

// Clone returns a deep copy so callers never share the backing array with a store.
func (s CatalogState) Clone() CatalogState {
	products := make([]Product, len(s.Products))
	copy(products, s.Products)
	return CatalogState{Products: products, NextID: s.NextID}
}

// MaxID returns the largest product id in the state, or 0.
func (s CatalogState) MaxID() int64 {
	var highest int64
	for _, p := range s.Products {
		if p.ID > highest {
			highest = p.ID
		}
	}
	return highest
}
