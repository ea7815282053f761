// Package storefront assembles the components of one page load around a resolved session.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/session"
)

var (
	ErrNotOrderable = errors.New("product is not available for ordering")
	ErrNotLoaded    = errors.New("product is not on the current page")
	ErrOwnerOnly    = errors.New("only the store owner can manage orders")
)

type Deps struct {
	API       *api.Client
	Tokens    session.TokenStore
	Cache     catalog.PageCache // optional
	Sink      orders.EventSink  // optional
	Confirmer orders.Confirmer

	PageSize       int
	PhoneRegion    string
	CheckoutBanner time.Duration
	Producer       string
	Logger         logrus.FieldLogger
}

// Page is one storefront view. Orders is nil unless the caller owns a store.
type Page struct {
	Session  session.Session
	Catalog  *catalog.Engine
	Editor   *catalog.Editor
	Global   *catalog.GlobalBrowser
	Cart     *cart.Cart
	Checkout *checkout.Orchestrator
	Orders   *orders.Manager

	log logrus.FieldLogger
}

// Open resolves the session from the stored token and wires the page. publicTenantID
// names the store shown to guests; zero means the owner's own store. Nothing is fetched.
func Open(ctx context.Context, d Deps, publicTenantID int64) (*Page, error) {
	if d.API == nil || d.Tokens == nil {
		return nil, fmt.Errorf("storefront: api client and token store are required")
	}
	log := d.Logger.WithField("module", "storefront")

	token, err := d.Tokens.Load(ctx)
	if err != nil {
		log.WithError(err).Warn("token store unavailable, continuing as guest")
		token = ""
	}
	sess, err := session.Resolve(token, publicTenantID, time.Now())
	if err != nil {
		log.WithError(err).Warn("stored token unusable, continuing as guest")
	}

	client := d.API.WithToken(sess.Token)
	tenant, _ := sess.TenantID()
	engine := catalog.NewEngine(client, catalog.DefaultQuery(tenant, d.PageSize), d.Logger)
	c := &cart.Cart{}

	p := &Page{
		Session: sess,
		Catalog: engine,
		Editor:  catalog.NewEditor(client, engine, sess, d.Logger),
		Global:  catalog.NewGlobalBrowser(client, client, engine, sess, d.Cache, d.Logger),
		Cart:    c,
		Checkout: checkout.New(client, c, checkout.Options{
			PhoneRegion:    d.PhoneRegion,
			SuccessDisplay: d.CheckoutBanner,
			Sink:           d.Sink,
			Producer:       d.Producer,
		}, d.Logger),
		log: log,
	}
	if sess.IsAuthenticated() {
		p.Orders = orders.NewManager(client, d.Confirmer, d.Sink, d.Producer, d.Logger)
	}
	return p, nil
}

// Load fetches the first catalog page. A not-ready page (no tenant) loads empty.
func (p *Page) Load(ctx context.Context) (catalog.Page[catalog.Product], error) {
	return p.Catalog.Refresh(ctx)
}

// ProductView is a product as this caller sees it.
type ProductView struct {
	catalog.Product
	Orderable      bool
	NeedsAttention bool // only ever set for the owner
	Editable       bool
}

func (p *Page) Products() []ProductView {
	page := p.Catalog.Current()
	owner := p.Session.CanEdit()
	out := make([]ProductView, 0, len(page.Items))
	for _, prod := range page.Items {
		out = append(out, ProductView{
			Product:        prod,
			Orderable:      prod.Orderable(),
			NeedsAttention: owner && prod.NeedsAttention(),
			Editable:       owner,
		})
	}
	return out
}

// AddToCart adds one unit of a loaded product. Unpriced or sold-out products are refused.
func (p *Page) AddToCart(productID int64) error {
	prod, ok := p.Catalog.Find(productID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotLoaded, productID)
	}
	if !prod.Orderable() {
		return fmt.Errorf("%w: %s", ErrNotOrderable, prod.Name)
	}
	p.Cart.Add(prod)
	return nil
}

// ManageOrders returns the owner's order manager.
func (p *Page) ManageOrders() (*orders.Manager, error) {
	if p.Orders == nil {
		return nil, ErrOwnerOnly
	}
	return p.Orders, nil
}
