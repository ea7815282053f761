package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/config"
)

// ErrStale is returned when a newer query was issued while the request was in flight.
var ErrStale = errors.New("catalog: response superseded by a newer query")

type Lister interface {
	ListLocal(ctx context.Context, q Query) (Page[Product], error)
}

// Engine holds the current query and the last page it produced. Each fetch is tagged
// with a sequence number and its query; only the response to the latest one is kept.
type Engine struct {
	src Lister
	log logrus.FieldLogger

	mu     sync.Mutex
	query  Query
	seq    uint64
	page   Page[Product]
	loaded bool
}

func NewEngine(src Lister, q Query, logger logrus.FieldLogger) *Engine {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Sort == "" {
		q.Sort = SortNewest
	}
	if q.Direction == "" {
		q.Direction = Desc
	}
	return &Engine{
		src:   src,
		log:   logger.WithField("module", "catalog"),
		query: q,
		page:  Page[Product]{Items: []Product{}},
	}
}

func (e *Engine) Query() Query {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Current returns a copy of the last page applied.
func (e *Engine) Current() Page[Product] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyPage(e.page)
}

func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

func (e *Engine) TotalPages() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.page.Legacy {
		return min(1, len(e.page.Items))
	}
	return TotalPages(e.page.TotalCount, e.query.PageSize)
}

func (e *Engine) Buttons() []int {
	total := e.TotalPages()
	return PageButtons(e.Query().Page, total)
}

// Refresh fetches the page for the current query. Without a tenant the engine is not
// ready: the current page is cleared and no request is made. On failure the previous
// page stays in place.
func (e *Engine) Refresh(ctx context.Context) (Page[Product], error) {
	e.mu.Lock()
	e.seq++
	seq, q := e.seq, e.query
	if q.TenantID <= 0 {
		e.page = Page[Product]{Items: []Product{}}
		e.loaded = false
		e.mu.Unlock()
		return Page[Product]{Items: []Product{}}, nil
	}
	e.mu.Unlock()

	page, err := e.src.ListLocal(ctx, q)

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.seq || q != e.query {
		return copyPage(e.page), ErrStale
	}
	if err != nil {
		config.LogError(e.log, "catalog", "Refresh", "list local products", q, err)
		return copyPage(e.page), err
	}
	if page.Items == nil {
		page.Items = []Product{}
	}
	e.page = page
	e.loaded = true
	return copyPage(page), nil
}

func (e *Engine) update(ctx context.Context, fn func(q *Query)) (Page[Product], error) {
	e.mu.Lock()
	fn(&e.query)
	e.mu.Unlock()
	return e.Refresh(ctx)
}

func (e *Engine) SetPage(ctx context.Context, page int) (Page[Product], error) {
	return e.update(ctx, func(q *Query) { q.Page = max(page, 1) })
}

func (e *Engine) SetSearch(ctx context.Context, search string) (Page[Product], error) {
	return e.update(ctx, func(q *Query) { q.Search, q.Page = search, 1 })
}

func (e *Engine) SetSort(ctx context.Context, key SortKey, dir Direction) (Page[Product], error) {
	return e.update(ctx, func(q *Query) { q.Sort, q.Direction, q.Page = key, dir, 1 })
}

// SetTenant switches the storefront shown; the page goes back to 1.
func (e *Engine) SetTenant(ctx context.Context, tenantID int64) (Page[Product], error) {
	return e.update(ctx, func(q *Query) {
		if q.TenantID != tenantID {
			q.Page = 1
		}
		q.TenantID = tenantID
	})
}

// Find returns the loaded product with id.
func (e *Engine) Find(productID int64) (Product, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.page.Items {
		if p.ProductID == productID {
			return p, true
		}
	}
	return Product{}, false
}

// Imported reports whether tenantID already holds a product imported from globalID.
// The loaded page is checked first, then every page of the unfiltered catalog.
func (e *Engine) Imported(ctx context.Context, tenantID, globalID int64) (bool, error) {
	e.mu.Lock()
	q := e.query
	if q.TenantID == tenantID && hasGlobalRef(e.page.Items, globalID) {
		e.mu.Unlock()
		return true, nil
	}
	e.mu.Unlock()

	all := DefaultQuery(tenantID, q.PageSize)
	all.Sort, all.Direction = SortName, Asc
	items, err := ListAll(ctx, e.src, all)
	if err != nil {
		return false, err
	}
	return hasGlobalRef(items, globalID), nil
}

func hasGlobalRef(items []Product, globalID int64) bool {
	for _, p := range items {
		if p.GlobalRefID != nil && *p.GlobalRefID == globalID {
			return true
		}
	}
	return false
}

// apply writes the edited fields of patch onto the loaded product.
func (e *Engine) apply(productID int64, patch Patch) (Product, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.page.Items {
		if e.page.Items[i].ProductID == productID {
			patch.apply(&e.page.Items[i])
			return e.page.Items[i], true
		}
	}
	return Product{}, false
}

func copyPage(p Page[Product]) Page[Product] {
	p.Items = append([]Product{}, p.Items...)
	return p
}
