package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/session"
)

type fakeSubmitter struct {
	mu      sync.Mutex
	block   chan struct{}
	entered chan struct{}
	owner   []orders.Submission
	guest   []orders.Submission
	err     error
	nextID  int64
}

func (f *fakeSubmitter) place(sub orders.Submission) orders.Order {
	f.nextID++
	return orders.Order{OrderID: f.nextID, TenantID: sub.TenantID, Items: sub.Items, Status: orders.StatusNew, Address: sub.Address}
}

func (f *fakeSubmitter) CreateOrder(_ context.Context, sub orders.Submission) (orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner = append(f.owner, sub)
	if f.err != nil {
		return orders.Order{}, f.err
	}
	return f.place(sub), nil
}

func (f *fakeSubmitter) CreateGuestOrder(_ context.Context, sub orders.Submission) (orders.Order, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guest = append(f.guest, sub)
	if f.err != nil {
		return orders.Order{}, f.err
	}
	return f.place(sub), nil
}

func (f *fakeSubmitter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.owner) + len(f.guest)
}

type sinkFunc func(orders.Envelope)

func (s sinkFunc) Emit(_ context.Context, env orders.Envelope) error { s(env); return nil }

func validForm() ShippingForm {
	return ShippingForm{
		FirstName:   "Jan",
		LastName:    "Kowalski",
		Phone:       "+48 601 234 567",
		Street:      "Polna",
		HouseNumber: "12a",
		ZipCode:     "00-950",
		City:        "Warszawa",
		Email:       "jan@example.pl",
	}
}

func filledCart() *cart.Cart {
	c := &cart.Cart{}
	c.Add(catalog.Product{ProductID: 7, Name: "Strat", Price: decimal.NewFromInt(50), Stock: 2})
	return c
}

func TestComposeAddress(t *testing.T) {
	assert.Equal(t, "Polna 12a, 00-950 Warszawa", ComposeAddress(validForm()))

	f := validForm()
	f.Address = " ul. Długa 1, 80-001 Gdańsk "
	assert.Equal(t, "ul. Długa 1, 80-001 Gdańsk", ComposeAddress(f))
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("601 234 567", "PL")
	require.NoError(t, err)
	assert.Equal(t, "+48601234567", got)
	assert.True(t, ValidPhone("+48 601 234 567", "PL"))
	assert.False(t, ValidPhone("12", "PL"))
}

func TestSubmit_Guest(t *testing.T) {
	api := &fakeSubmitter{}
	c := filledCart()
	var events []orders.Envelope
	o := New(api, c, Options{Sink: sinkFunc(func(e orders.Envelope) { events = append(events, e) }), Producer: "storefront"}, config.NopLogger())
	o.Begin()

	order, err := o.Submit(context.Background(), session.Anonymous(21), validForm())
	require.NoError(t, err)
	assert.Equal(t, int64(21), order.TenantID)

	require.Len(t, api.guest, 1)
	sub := api.guest[0]
	assert.Equal(t, "jan@example.pl", sub.Email)
	assert.Equal(t, int64(21), sub.TenantID)
	assert.Equal(t, "Polna 12a, 00-950 Warszawa", sub.Address)
	assert.Equal(t, "+48601234567", sub.PhoneNumber)
	assert.Equal(t, []orders.Item{{ProductID: 7, Quantity: 1}}, sub.Items)

	assert.Equal(t, Succeeded, o.State())
	assert.Zero(t, c.Len())
	assert.Equal(t, ShippingForm{}, o.Form())
	require.Len(t, events, 1)
	assert.Equal(t, orders.EventOrderSubmitted, events[0].EventType)
}

func TestSubmit_OwnerUsesAuthenticatedPath(t *testing.T) {
	api := &fakeSubmitter{}
	o := New(api, filledCart(), Options{}, config.NopLogger())
	sess := session.Session{Caller: session.Owner{Tenant: 21, UserID: "1"}, Token: "t", ViewTenant: 21}

	f := validForm()
	f.Email = ""
	order, err := o.Submit(context.Background(), sess, f)
	require.NoError(t, err)
	assert.Equal(t, int64(21), order.TenantID)
	require.Len(t, api.owner, 1)
	assert.Empty(t, api.guest)
	assert.Empty(t, api.owner[0].Email)
	assert.Zero(t, api.owner[0].TenantID)
}

func TestSubmit_GuestEmailNeedsAt(t *testing.T) {
	api := &fakeSubmitter{}
	c := filledCart()
	o := New(api, c, Options{}, config.NopLogger())

	f := validForm()
	f.Email = "jan.example.pl"
	_, err := o.Submit(context.Background(), session.Anonymous(21), f)

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "contains", ve.Fields["email"])
	assert.Zero(t, api.calls())
	assert.Equal(t, FillingShippingForm, o.State())
	assert.Equal(t, f, o.Form())
	assert.Equal(t, 1, c.Len())
}

func TestSubmit_GuestWithoutTenant(t *testing.T) {
	api := &fakeSubmitter{}
	o := New(api, filledCart(), Options{}, config.NopLogger())

	// invalid form too: the tenant check comes first
	_, err := o.Submit(context.Background(), session.Anonymous(0), ShippingForm{})
	assert.True(t, apperr.IsConfiguration(err))
	assert.False(t, apperr.IsValidation(err))
	assert.Zero(t, api.calls())
}

func TestSubmit_InvalidForm(t *testing.T) {
	api := &fakeSubmitter{}
	o := New(api, filledCart(), Options{}, config.NopLogger())

	f := validForm()
	f.FirstName = ""
	f.Phone = "12"
	f.City = ""
	_, err := o.Submit(context.Background(), session.Anonymous(21), f)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{"first_name": "required", "phone_number": "phone", "city": "required_without"}, ve.Fields)
	assert.Zero(t, api.calls())

	f = validForm()
	f.Street, f.HouseNumber, f.ZipCode, f.City = "", "", "", ""
	f.Address = "Rynek 1, 50-101 Wrocław"
	_, err = o.Submit(context.Background(), session.Anonymous(21), f)
	require.NoError(t, err)
}

func TestSubmit_EmptyCart(t *testing.T) {
	api := &fakeSubmitter{}
	o := New(api, &cart.Cart{}, Options{}, config.NopLogger())
	_, err := o.Submit(context.Background(), session.Anonymous(21), validForm())
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, api.calls())
}

func TestSubmit_FailureKeepsFormAndCart(t *testing.T) {
	api := &fakeSubmitter{err: &apperr.CollaboratorError{StatusCode: 400, Detail: "Product 7 is out of stock"}}
	c := filledCart()
	o := New(api, c, Options{}, config.NopLogger())
	f := validForm()

	_, err := o.Submit(context.Background(), session.Anonymous(21), f)
	require.Error(t, err)
	assert.Equal(t, FillingShippingForm, o.State())
	assert.Equal(t, f, o.Form())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "Product 7 is out of stock", o.ErrorMessage())

	api.err = &apperr.CollaboratorError{StatusCode: 500}
	_, err = o.Submit(context.Background(), session.Anonymous(21), f)
	require.Error(t, err)
	assert.Equal(t, apperr.MsgSubmitFailed, o.ErrorMessage())
}

func TestSubmit_SuccessReturnsToBrowsing(t *testing.T) {
	o := New(&fakeSubmitter{}, filledCart(), Options{SuccessDisplay: 20 * time.Millisecond}, config.NopLogger())

	_, err := o.Submit(context.Background(), session.Anonymous(21), validForm())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, o.State())
	last, ok := o.LastOrder()
	require.True(t, ok)
	assert.Equal(t, int64(1), last.OrderID)
	assert.Eventually(t, func() bool { return o.State() == Browsing }, time.Second, 5*time.Millisecond)
}

func TestSubmit_ConcurrentCallsPlaceOneOrder(t *testing.T) {
	api := &fakeSubmitter{block: make(chan struct{}), entered: make(chan struct{}, 8)}
	o := New(api, filledCart(), Options{}, config.NopLogger())
	_, ok := o.LastOrder()
	assert.False(t, ok)

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := o.Submit(context.Background(), session.Anonymous(21), validForm())
			errs <- err
		}()
	}
	<-api.entered
	for i := 0; i < n-1; i++ {
		assert.ErrorIs(t, <-errs, ErrInProgress)
	}
	assert.Equal(t, Submitting, o.State())

	close(api.block)
	require.NoError(t, <-errs)
	assert.Equal(t, 1, api.calls())
	assert.Equal(t, Succeeded, o.State())
}

func TestSubmit_InvalidFormReopensForm(t *testing.T) {
	o := New(&fakeSubmitter{}, filledCart(), Options{}, config.NopLogger())
	f := validForm()
	f.FirstName = ""

	_, err := o.Submit(context.Background(), session.Anonymous(21), f)
	require.Error(t, err)
	assert.Equal(t, FillingShippingForm, o.State())

	_, err = o.Submit(context.Background(), session.Anonymous(21), validForm())
	require.NoError(t, err)
}

func TestValidPhone_ForeignNumberWithCountryCode(t *testing.T) {
	assert.True(t, ValidPhone("+44 20 7946 0958", "PL"))
	got, err := NormalizePhone("+44 20 7946 0958", "PL")
	require.NoError(t, err)
	assert.Equal(t, "+442079460958", got)
	assert.False(t, ValidPhone("20 7946 0958", "PL"))
}
