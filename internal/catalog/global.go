package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/session"
)

// sharedLoadTimeout bounds a global page load shared by several callers; it does not
// follow any single caller's context.
const sharedLoadTimeout = 15 * time.Second

type GlobalSource interface {
	ListGlobal(ctx context.Context, q GlobalQuery) (Page[GlobalProduct], error)
}

// PageCache is a JSON cache keyed by string; redisx.Cache implements it.
type PageCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

// GlobalBrowser pages through the shared catalog and imports entries into the
// owner's store. Pages are cached when a cache is configured; concurrent loads of
// the same page share one request.
type GlobalBrowser struct {
	src    GlobalSource
	w      Writer
	engine *Engine
	sess   session.Session
	cache  PageCache
	group  singleflight.Group
	log    logrus.FieldLogger
}

// NewGlobalBrowser wires the browser; cache may be nil.
func NewGlobalBrowser(src GlobalSource, w Writer, engine *Engine, sess session.Session, cache PageCache, logger logrus.FieldLogger) *GlobalBrowser {
	return &GlobalBrowser{
		src:    src,
		w:      w,
		engine: engine,
		sess:   sess,
		cache:  cache,
		log:    logger.WithField("module", "catalog.global"),
	}
}

func (b *GlobalBrowser) List(ctx context.Context, q GlobalQuery) (Page[GlobalProduct], error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	key := fmt.Sprintf(redisx.KeyGlobalPage, q.Page, q.PageSize, q.Search)

	if b.cache != nil {
		var cached Page[GlobalProduct]
		hit, err := b.cache.Get(ctx, key, &cached)
		if err != nil {
			b.log.WithError(err).Warn("global page cache read failed")
		}
		if hit {
			return cached, nil
		}
	}

	ch := b.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		page, err := b.src.ListGlobal(lctx, q)
		if err != nil {
			return nil, err
		}
		if b.cache != nil {
			if err := b.cache.Set(lctx, key, page); err != nil {
				b.log.WithError(err).Warn("global page cache write failed")
			}
		}
		return page, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Page[GlobalProduct]{}, ctx.Err()
	}
	if res.Err != nil {
		config.LogError(b.log, "catalog", "List", "list global products", q, res.Err)
		return Page[GlobalProduct]{}, res.Err
	}
	return res.Val.(Page[GlobalProduct]), nil
}

// Import copies g into the owner's store unpriced, so it needs attention before it
// can be ordered. Importing the same global product twice is a conflict, whether the
// earlier copy is found in the owner's catalog or reported by the API as 409. There
// is no retry.
func (b *GlobalBrowser) Import(ctx context.Context, g GlobalProduct) (Product, error) {
	owner, ok := b.sess.Owner()
	if !ok || !b.sess.CanEdit() {
		return Product{}, ErrReadOnly
	}
	dup, err := b.engine.Imported(ctx, owner.Tenant, g.GlobalID)
	if err != nil {
		config.LogError(b.log, "catalog", "Import", "check existing imports", g, err)
		return Product{}, err
	}
	if dup {
		return Product{}, &apperr.ConflictError{Message: fmt.Sprintf("%q is already in your store", g.Name)}
	}

	ref := g.GlobalID
	p, err := b.w.CreateProduct(ctx, NewProduct{
		TenantID:    owner.Tenant,
		Name:        g.Name,
		SKU:         g.EANCode,
		Description: g.BaseDescription,
		Price:       decimal.Zero,
		GlobalRefID: &ref,
	})
	if err != nil {
		config.LogError(b.log, "catalog", "Import", "import global product", g, err)
		if apperr.IsConflict(err) {
			return Product{}, &apperr.ConflictError{Message: apperr.Message(err, fmt.Sprintf("%q is already in your store", g.Name))}
		}
		return Product{}, err
	}
	if _, err := b.engine.Refresh(ctx); err != nil {
		b.log.WithError(err).Warn("reload after import failed")
	}
	return p, nil
}
