// Package checkout turns the cart into an order, for the store owner or a guest.
package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/session"
)

type State string

const (
	Browsing            State = "browsing"
	FillingShippingForm State = "filling_shipping_form"
	Submitting          State = "submitting"
	Succeeded           State = "succeeded"
	// Failed is never held: the error goes to LastError and the form reopens.
	Failed State = "failed"
)

var ErrInProgress = errors.New("checkout: an order is already being submitted")

const DefaultSuccessDisplay = 5 * time.Second

type Submitter interface {
	CreateOrder(ctx context.Context, sub orders.Submission) (orders.Order, error)
	CreateGuestOrder(ctx context.Context, sub orders.Submission) (orders.Order, error)
}

type Options struct {
	PhoneRegion    string
	SuccessDisplay time.Duration
	Sink           orders.EventSink
	Producer       string
}

// Orchestrator drives Browsing -> FillingShippingForm -> Submitting -> Succeeded|Failed.
// A failure records the error and goes back to FillingShippingForm with the entered
// form kept; success returns to Browsing after SuccessDisplay.
type Orchestrator struct {
	api      Submitter
	cart     *cart.Cart
	opts     Options
	validate *validator.Validate
	log      logrus.FieldLogger

	mu        sync.Mutex
	state     State
	form      ShippingForm
	lastErr   error
	lastOrder *orders.Order
	timer     *time.Timer
}

func New(api Submitter, c *cart.Cart, opts Options, logger logrus.FieldLogger) *Orchestrator {
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = "PL"
	}
	if opts.SuccessDisplay <= 0 {
		opts.SuccessDisplay = DefaultSuccessDisplay
	}
	return &Orchestrator{
		api:      api,
		cart:     c,
		opts:     opts,
		validate: newValidate(opts.PhoneRegion),
		log:      logger.WithField("module", "checkout"),
		state:    Browsing,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Form returns the data last entered; it survives a failed submission.
func (o *Orchestrator) Form() ShippingForm {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.form
}

func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// ErrorMessage is the display text for the last failure.
func (o *Orchestrator) ErrorMessage() string {
	return apperr.Message(o.LastError(), apperr.MsgSubmitFailed)
}

func (o *Orchestrator) LastOrder() (orders.Order, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastOrder == nil {
		return orders.Order{}, false
	}
	return *o.lastOrder, true
}

// Begin opens the shipping form.
func (o *Orchestrator) Begin() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopTimer()
	if o.state != Submitting {
		o.state = FillingShippingForm
	}
}

// Submit places the cart as an order. Owners go through the authenticated path,
// guests through the guest path with their email and the storefront's tenant.
// Only one submission runs at a time; a second call gets ErrInProgress.
func (o *Orchestrator) Submit(ctx context.Context, sess session.Session, form ShippingForm) (orders.Order, error) {
	o.mu.Lock()
	if o.state == Submitting {
		o.mu.Unlock()
		return orders.Order{}, ErrInProgress
	}
	o.stopTimer()
	o.form = form
	o.state = Submitting
	o.mu.Unlock()

	sub, guest, err := o.prepare(sess, form)
	if err != nil {
		return orders.Order{}, o.fail(err)
	}

	var order orders.Order
	if guest {
		order, err = o.api.CreateGuestOrder(ctx, sub)
	} else {
		order, err = o.api.CreateOrder(ctx, sub)
	}
	if err != nil {
		config.LogError(o.log, "checkout", "Submit", "submit order", map[string]any{"guest": guest, "items": len(sub.Items)}, err)
		return orders.Order{}, o.fail(err)
	}
	if order.TenantID == 0 {
		order.TenantID = sess.Caller.TenantID()
	}

	o.cart.Clear()
	o.mu.Lock()
	o.state = Succeeded
	o.form = ShippingForm{}
	o.lastErr = nil
	o.lastOrder = &order
	o.timer = time.AfterFunc(o.opts.SuccessDisplay, o.backToBrowsing)
	o.mu.Unlock()

	orders.Emit(ctx, o.opts.Sink, o.log, o.opts.Producer, orders.EventOrderSubmitted, order.OrderID, orders.OrderSubmittedPayload{
		OrderID:     order.OrderID,
		TenantID:    order.TenantID,
		Guest:       guest,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
	})
	return order, nil
}

// prepare checks everything that can be checked without the network.
func (o *Orchestrator) prepare(sess session.Session, form ShippingForm) (orders.Submission, bool, error) {
	guest, isGuest := sess.Caller.(session.Guest)
	if sess.Caller == nil {
		isGuest = true
	}
	if isGuest && guest.Tenant <= 0 {
		err := &apperr.ConfigurationError{Message: "this storefront does not say which store the order is for"}
		config.LogError(o.log, "checkout", "Submit", "guest checkout without tenant", nil, err)
		return orders.Submission{}, true, err
	}
	if o.cart.Len() == 0 {
		return orders.Submission{}, isGuest, apperr.Invalid("cart is empty")
	}
	if err := o.validate.Struct(form); err != nil {
		return orders.Submission{}, isGuest, apperr.FromValidator("invalid shipping details", err)
	}
	if isGuest {
		if err := validateGuestEmail(o.validate, form.Email); err != nil {
			return orders.Submission{}, true, err
		}
	}
	phone, err := NormalizePhone(form.Phone, o.opts.PhoneRegion)
	if err != nil {
		return orders.Submission{}, isGuest, &apperr.ValidationError{Message: "invalid shipping details", Fields: map[string]string{"phone_number": "phone"}}
	}

	sub := orders.Submission{
		Items:       o.cart.Lines(),
		FirstName:   strings.TrimSpace(form.FirstName),
		LastName:    strings.TrimSpace(form.LastName),
		Address:     ComposeAddress(form),
		PhoneNumber: phone,
	}
	if isGuest {
		sub.Email = strings.TrimSpace(form.Email)
		sub.TenantID = guest.Tenant
	}
	return sub, isGuest, nil
}

// fail records err and reopens the form.
func (o *Orchestrator) fail(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastErr = err
	o.state = FillingShippingForm
	return err
}

func (o *Orchestrator) backToBrowsing() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Succeeded {
		o.state = Browsing
	}
}

// stopTimer cancels a pending return to Browsing. Caller holds o.mu.
func (o *Orchestrator) stopTimer() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}
