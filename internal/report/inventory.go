package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

// Line is one product listed in a report section.
type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock_quantity"`
}

// Inventory is the warehouse audit of one tenant at a point in time.
type Inventory struct {
	TenantID     int64           `json:"tenant_id"`
	GeneratedAt  time.Time       `json:"generated_at"`
	ProductCount int             `json:"product_count"`
	TotalUnits   int             `json:"total_units"`
	TotalValue   decimal.Decimal `json:"total_value"`
	OutOfStock   []Line          `json:"out_of_stock"`
	NeedsPrice   []Line          `json:"needs_price"`
}

// Build aggregates products into an Inventory. Negative stock counts as zero.
func Build(tenantID int64, products []catalog.Product, at time.Time) Inventory {
	inv := Inventory{
		TenantID:    tenantID,
		GeneratedAt: at.UTC(),
		TotalValue:  decimal.Zero,
		OutOfStock:  []Line{},
		NeedsPrice:  []Line{},
	}
	for _, p := range products {
		stock := p.Stock
		if stock < 0 {
			stock = 0
		}
		inv.ProductCount++
		inv.TotalUnits += stock
		inv.TotalValue = inv.TotalValue.Add(p.Price.Mul(decimal.NewFromInt(int64(stock))))

		l := Line{ProductID: p.ProductID, Name: p.Name, SKU: p.SKU, Price: p.Price, Stock: stock}
		if stock == 0 {
			inv.OutOfStock = append(inv.OutOfStock, l)
		}
		if p.NeedsAttention() {
			inv.NeedsPrice = append(inv.NeedsPrice, l)
		}
	}
	return inv
}

type Lister interface {
	ListLocal(ctx context.Context, q catalog.Query) (catalog.Page[catalog.Product], error)
}

// FetchAll walks every page of a tenant's catalog, sorted by name.
func FetchAll(ctx context.Context, src Lister, tenantID int64, pageSize int) ([]catalog.Product, error) {
	if tenantID <= 0 {
		return nil, fmt.Errorf("report: invalid tenant id %d", tenantID)
	}
	q := catalog.DefaultQuery(tenantID, pageSize)
	q.Sort, q.Direction = catalog.SortName, catalog.Asc
	return catalog.ListAll(ctx, src, q)
}
