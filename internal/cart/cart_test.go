package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

func product(id int64, price string) catalog.Product {
	return catalog.Product{ProductID: id, Name: "p", Price: decimal.RequireFromString(price), Stock: 10}
}

func TestAdd_MergesSameProduct(t *testing.T) {
	var c Cart
	a, b := product(1, "10"), product(2, "3.50")

	c.Add(a)
	c.Add(b)
	c.Add(a)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, int64(2), items[1].ProductID)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, []orders.Item{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, c.Lines())
}

func TestTotal_UsesPriceAtAdd(t *testing.T) {
	var c Cart
	p := product(1, "19.99")
	c.Add(p)
	c.Add(product(2, "0.01"))

	p.Price = decimal.NewFromInt(1000)
	c.Add(p) // merges, keeps the captured 19.99

	assert.Equal(t, "39.99", c.Total().String())
}

func TestClear(t *testing.T) {
	var c Cart
	c.Add(product(1, "5"))
	c.Clear()
	assert.Zero(t, c.Len())
	assert.True(t, c.Total().IsZero())

	c.Add(product(1, "5"))
	assert.Equal(t, 1, c.Items()[0].Quantity)
}
