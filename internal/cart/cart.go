// Package cart aggregates products into order lines with the price seen at add time.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

type Item struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is in-memory only. The zero value is ready to use.
type Cart struct {
	mu    sync.Mutex
	items []Item
	index map[int64]int
}

// Add puts one unit of p in the cart, merging with an existing line for the same product.
func (c *Cart) Add(p catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		c.index = map[int64]int{}
	}
	if i, ok := c.index[p.ProductID]; ok {
		c.items[i].Quantity++
		return
	}
	c.index[p.ProductID] = len(c.items)
	c.items = append(c.items, Item{ProductID: p.ProductID, Name: p.Name, Price: p.Price, Quantity: 1})
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.index = nil
}

// Items returns a copy in first-insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Lines converts the cart into the order payload lines.
func (c *Cart) Lines() []orders.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]orders.Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, orders.Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}
