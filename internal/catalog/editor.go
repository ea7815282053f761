package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/session"
)

// ErrReadOnly is returned for edits outside the caller's own storefront.
var ErrReadOnly = errors.New("catalog: editing is only available to the store owner")

type Writer interface {
	UpdateProduct(ctx context.Context, productID int64, p Patch) (Product, error)
	CreateProduct(ctx context.Context, p NewProduct) (Product, error)
}

// ParsePatch reads inline edit input. Blank text leaves that field unchanged.
func ParsePatch(priceText, stockText string) (Patch, error) {
	var (
		patch  Patch
		fields = map[string]string{}
	)
	if s := strings.TrimSpace(priceText); s != "" {
		price, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
		switch {
		case err != nil:
			fields["price"] = "numeric"
		case price.IsNegative():
			fields["price"] = "min"
		default:
			patch.Price = &price
		}
	}
	if s := strings.TrimSpace(stockText); s != "" {
		stock, err := strconv.Atoi(s)
		switch {
		case err != nil:
			fields["stock_quantity"] = "numeric"
		case stock < 0:
			fields["stock_quantity"] = "min"
		default:
			patch.Stock = &stock
		}
	}
	if len(fields) > 0 {
		return Patch{}, &apperr.ValidationError{Message: "invalid product values", Fields: fields}
	}
	if patch.Empty() {
		return Patch{}, apperr.Invalid("nothing to update")
	}
	return patch, nil
}

func (p Patch) validate() error {
	fields := map[string]string{}
	if p.Price != nil && p.Price.IsNegative() {
		fields["price"] = "min"
	}
	if p.Stock != nil && *p.Stock < 0 {
		fields["stock_quantity"] = "min"
	}
	if len(fields) > 0 {
		return &apperr.ValidationError{Message: "invalid product values", Fields: fields}
	}
	if p.Empty() {
		return apperr.Invalid("nothing to update")
	}
	return nil
}

// Draft is the manual product entry form.
type Draft struct {
	Name        string `json:"name" validate:"required,max=200"`
	SKU         string `json:"sku" validate:"required,max=64"`
	Description string `json:"description" validate:"max=2000"`
	Price       string `json:"price" validate:"required,numeric"`
	Stock       int    `json:"stock_quantity" validate:"gte=0"`
}

// Editor changes products of the storefront on display, for its owner only.
type Editor struct {
	w        Writer
	engine   *Engine
	sess     session.Session
	validate *validator.Validate
	log      logrus.FieldLogger
}

func NewEditor(w Writer, engine *Engine, sess session.Session, logger logrus.FieldLogger) *Editor {
	return &Editor{
		w:        w,
		engine:   engine,
		sess:     sess,
		validate: apperr.NewValidate(),
		log:      logger.WithField("module", "catalog"),
	}
}

// UpdateProduct sends patch and, once acknowledged, applies only the edited fields to
// the loaded product. On any error the loaded list is left as it was.
func (e *Editor) UpdateProduct(ctx context.Context, productID int64, patch Patch) (Product, error) {
	if !e.sess.CanEdit() {
		return Product{}, ErrReadOnly
	}
	if err := patch.validate(); err != nil {
		return Product{}, err
	}
	resp, err := e.w.UpdateProduct(ctx, productID, patch)
	if err != nil {
		config.LogError(e.log, "catalog", "UpdateProduct", "patch product", map[string]any{"product_id": productID}, err)
		return Product{}, err
	}
	if p, ok := e.engine.apply(productID, patch); ok {
		return p, nil
	}
	return resp, nil
}

// Create adds a manually entered product to the owner's store and reloads the list.
func (e *Editor) Create(ctx context.Context, d Draft) (Product, error) {
	owner, ok := e.sess.Owner()
	if !ok || !e.sess.CanEdit() {
		return Product{}, ErrReadOnly
	}
	if err := e.validate.Struct(d); err != nil {
		return Product{}, apperr.FromValidator("invalid product", err)
	}
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return Product{}, &apperr.ValidationError{Message: "invalid product", Fields: map[string]string{"price": "numeric"}}
	}
	if price.IsNegative() {
		return Product{}, &apperr.ValidationError{Message: "invalid product", Fields: map[string]string{"price": "min"}}
	}
	stock := d.Stock
	p, err := e.w.CreateProduct(ctx, NewProduct{
		TenantID:    owner.Tenant,
		Name:        strings.TrimSpace(d.Name),
		SKU:         strings.TrimSpace(d.SKU),
		Description: d.Description,
		Price:       price,
		Stock:       &stock,
	})
	if err != nil {
		config.LogError(e.log, "catalog", "Create", "create product", d, err)
		return Product{}, err
	}
	e.refresh(ctx)
	return p, nil
}

// refresh reloads after a successful write; a failed reload keeps the old list.
func (e *Editor) refresh(ctx context.Context) {
	if _, err := e.engine.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
		e.log.WithError(err).Warn("reload after write failed")
	}
}
