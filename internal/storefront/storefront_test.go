package storefront

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/api/apitest"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/session"
)

func deps(t *testing.T, f *apitest.Fake) Deps {
	t.Helper()
	client, err := api.New(api.Config{BaseURL: f.URL()}, config.NopLogger())
	require.NoError(t, err)
	return Deps{
		API:       client,
		Tokens:    &session.FileStore{Path: filepath.Join(t.TempDir(), "token")},
		Confirmer: orders.ConfirmFunc(func(string) bool { return true }),
		PageSize:  12,
		Producer:  "storefront-test",
		Logger:    config.NopLogger(),
	}
}

func guestForm() checkout.ShippingForm {
	return checkout.ShippingForm{
		FirstName:   "Anna",
		LastName:    "Nowak",
		Phone:       "+48 601 234 567",
		Street:      "Polna",
		HouseNumber: "3",
		ZipCode:     "00-001",
		City:        "Warszawa",
		Email:       "anna@example.pl",
	}
}

func TestGuestOrderEndToEnd(t *testing.T) {
	f := apitest.NewFake(t)
	prod := f.AddProduct(catalog.Product{TenantID: 21, Name: "Strat", SKU: "S", Price: decimal.NewFromInt(50), Stock: 2})
	ctx := context.Background()

	page, err := Open(ctx, deps(t, f), 21)
	require.NoError(t, err)
	assert.False(t, page.Session.IsAuthenticated())
	assert.Nil(t, page.Orders)

	_, err = page.Load(ctx)
	require.NoError(t, err)
	views := page.Products()
	require.Len(t, views, 1)
	assert.True(t, views[0].Orderable)
	assert.False(t, views[0].Editable)

	require.NoError(t, page.AddToCart(prod.ProductID))
	order, err := page.Checkout.Submit(ctx, page.Session, guestForm())
	require.NoError(t, err)

	assert.Equal(t, []orders.Item{{ProductID: prod.ProductID, Quantity: 1}}, order.Items)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, orders.StatusNew, order.Status)

	stored, ok := f.Order(order.OrderID)
	require.True(t, ok)
	assert.Equal(t, int64(21), stored.TenantID)
	assert.Equal(t, "anna@example.pl", stored.Email)
	assert.Equal(t, "Polna 3, 00-001 Warszawa", stored.Address)
	assert.Zero(t, page.Cart.Len())
}

func TestOwnerConfirmEndToEnd(t *testing.T) {
	f := apitest.NewFake(t)
	prod := f.AddProduct(catalog.Product{TenantID: 21, Name: "Strat", Price: decimal.NewFromInt(50), Stock: 2})
	placed := f.AddOrder(orders.Order{TenantID: 21, Items: []orders.Item{{ProductID: prod.ProductID, Quantity: 1}}, TotalAmount: decimal.NewFromInt(50)})
	ctx := context.Background()

	d := deps(t, f)
	require.NoError(t, d.Tokens.Save(ctx, apitest.Token(21, "1")))
	page, err := Open(ctx, d, 0)
	require.NoError(t, err)
	require.True(t, page.Session.CanEdit())

	m, err := page.ManageOrders()
	require.NoError(t, err)
	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []orders.Action{orders.ActionConfirm, orders.ActionReject}, m.Actions(list[0]))

	require.NoError(t, m.SetStatus(ctx, placed.OrderID, orders.StatusConfirmed))
	got, ok := m.Get(placed.OrderID)
	require.True(t, ok)
	assert.Equal(t, orders.StatusConfirmed, got.Status)
	assert.Equal(t, []orders.Action{orders.ActionDelete}, m.Actions(got))

	p, _ := f.Product(prod.ProductID)
	assert.Equal(t, 1, p.Stock)

	require.NoError(t, m.Delete(ctx, placed.OrderID))
	assert.Empty(t, m.Orders())
	_, ok = f.Order(placed.OrderID)
	assert.False(t, ok)
}

func TestOwnerConfirmInsufficientStock(t *testing.T) {
	f := apitest.NewFake(t)
	prod := f.AddProduct(catalog.Product{TenantID: 21, Name: "Strat", Price: decimal.NewFromInt(50), Stock: 1})
	placed := f.AddOrder(orders.Order{TenantID: 21, Items: []orders.Item{{ProductID: prod.ProductID, Quantity: 3}}})
	ctx := context.Background()

	d := deps(t, f)
	require.NoError(t, d.Tokens.Save(ctx, apitest.Token(21, "1")))
	page, err := Open(ctx, d, 0)
	require.NoError(t, err)
	_, err = page.Orders.List(ctx)
	require.NoError(t, err)

	err = page.Orders.SetStatus(ctx, placed.OrderID, orders.StatusConfirmed)
	require.Error(t, err)
	assert.Contains(t, apperr.Message(err, ""), "Insufficient stock")
	got, _ := page.Orders.Get(placed.OrderID)
	assert.Equal(t, orders.StatusNew, got.Status)
}

func TestAddToCart_RefusesUnavailable(t *testing.T) {
	f := apitest.NewFake(t)
	unpriced := f.AddProduct(catalog.Product{TenantID: 21, Name: "Imported", Price: decimal.Zero, Stock: 4})
	soldOut := f.AddProduct(catalog.Product{TenantID: 21, Name: "Sold out", Price: decimal.NewFromInt(9), Stock: 0})
	ctx := context.Background()

	page, err := Open(ctx, deps(t, f), 21)
	require.NoError(t, err)
	_, err = page.Load(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, page.AddToCart(unpriced.ProductID), ErrNotOrderable)
	assert.ErrorIs(t, page.AddToCart(soldOut.ProductID), ErrNotOrderable)
	assert.ErrorIs(t, page.AddToCart(999), ErrNotLoaded)
	assert.Zero(t, page.Cart.Len())

	for _, v := range page.Products() {
		assert.False(t, v.NeedsAttention, "guests never see the attention marker")
	}
}

func TestOwnerSeesNeedsAttentionAndImports(t *testing.T) {
	f := apitest.NewFake(t)
	f.AddGlobal(catalog.GlobalProduct{GlobalID: 5, Name: "Les Paul", EANCode: "590123", BaseDescription: "Mahogany"})
	ctx := context.Background()

	d := deps(t, f)
	require.NoError(t, d.Tokens.Save(ctx, apitest.Token(21, "1")))
	page, err := Open(ctx, d, 0)
	require.NoError(t, err)
	_, err = page.Load(ctx)
	require.NoError(t, err)

	globals, err := page.Global.List(ctx, catalog.GlobalQuery{})
	require.NoError(t, err)
	require.Len(t, globals.Items, 1)

	imported, err := page.Global.Import(ctx, globals.Items[0])
	require.NoError(t, err)
	assert.Equal(t, "590123", imported.SKU)

	views := page.Products()
	require.Len(t, views, 1)
	assert.True(t, views[0].NeedsAttention)
	assert.False(t, views[0].Orderable)

	_, err = page.Global.Import(ctx, globals.Items[0])
	assert.True(t, apperr.IsConflict(err))

	price, err := catalog.ParsePatch("120", "")
	require.NoError(t, err)
	_, err = page.Editor.UpdateProduct(ctx, imported.ProductID, price)
	require.NoError(t, err)
	assert.False(t, page.Products()[0].Orderable, "stock still defaults to zero")
	assert.False(t, page.Products()[0].NeedsAttention)
}

func TestOpen_NoTenantIsNotReady(t *testing.T) {
	f := apitest.NewFake(t)
	ctx := context.Background()

	page, err := Open(ctx, deps(t, f), 0)
	require.NoError(t, err)
	got, err := page.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Zero(t, f.Calls())

	page.Cart.Add(catalog.Product{ProductID: 1, Price: decimal.NewFromInt(1), Stock: 1})
	_, err = page.Checkout.Submit(ctx, page.Session, guestForm())
	assert.True(t, apperr.IsConfiguration(err))
	assert.Zero(t, f.Calls())
}

func TestAuthFlow(t *testing.T) {
	f := apitest.NewFake(t)
	ctx := context.Background()
	d := deps(t, f)
	auth := NewAuth(d.API, d.Tokens, config.NopLogger())

	require.NoError(t, auth.Register(ctx, "owner@shop.pl", "secret", "Guitar Shop"))
	assert.True(t, apperr.IsValidation(auth.Register(ctx, "", "x", "y")))

	_, err := auth.Login(ctx, "owner@shop.pl", "wrong")
	assert.Equal(t, "Incorrect email or password", apperr.Message(err, ""))

	sess, err := auth.Login(ctx, "owner@shop.pl", "secret")
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated())

	page, err := Open(ctx, d, 0)
	require.NoError(t, err)
	assert.True(t, page.Session.IsAuthenticated())
	assert.NotNil(t, page.Orders)

	require.NoError(t, auth.Logout(ctx))
	page, err = Open(ctx, d, 0)
	require.NoError(t, err)
	assert.False(t, page.Session.IsAuthenticated())
}
