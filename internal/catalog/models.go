package catalog

import (
	"github.com/shopspring/decimal"
)

// Product is one offer in a tenant's store.
type Product struct {
	ProductID   int64           `json:"product_id"`
	TenantID    int64           `json:"tenant_id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock_quantity"`
	GlobalRefID *int64          `json:"global_ref_id,omitempty"`
}

// Orderable is the single availability rule: priced and in stock.
func (p Product) Orderable() bool {
	return p.Price.IsPositive() && p.Stock > 0
}

// NeedsAttention marks imported products the owner has not priced yet.
func (p Product) NeedsAttention() bool {
	return p.Price.IsZero()
}

// NewProduct is the create payload. A nil Stock lets the API apply its default.
type NewProduct struct {
	TenantID    int64           `json:"tenant_id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock_quantity,omitempty"`
	GlobalRefID *int64          `json:"global_ref_id,omitempty"`
}

// GlobalProduct is an entry of the shared catalog. Read-only for tenants.
type GlobalProduct struct {
	GlobalID        int64  `json:"global_id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	BaseDescription string `json:"base_description,omitempty"`
	EANCode         string `json:"ean_code"`
}

// Page is one normalised listing response. Legacy is set when the API answered
// with a bare array, which always counts as a single page.
type Page[T any] struct {
	Items      []T  `json:"items"`
	TotalCount int  `json:"total_count"`
	Legacy     bool `json:"legacy,omitempty"`
}

// Patch carries the inline-edited fields; nil fields are left alone.
type Patch struct {
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock *int             `json:"stock_quantity,omitempty"`
}

func (p Patch) Empty() bool { return p.Price == nil && p.Stock == nil }

// apply copies only the edited fields onto dst.
func (p Patch) apply(dst *Product) {
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Stock != nil {
		dst.Stock = *p.Stock
	}
}
