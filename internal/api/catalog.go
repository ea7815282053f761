package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

// decodePage accepts both listing shapes: {"total": n, "products": [...]} and a bare array.
func decodePage[T any](raw json.RawMessage) (catalog.Page[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return catalog.Page[T]{Items: []T{}}, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return catalog.Page[T]{}, fmt.Errorf("decode list: %w", err)
		}
		return catalog.Page[T]{Items: items, TotalCount: len(items), Legacy: true}, nil
	}
	var env struct {
		Total    int `json:"total"`
		Products []T `json:"products"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return catalog.Page[T]{}, fmt.Errorf("decode page: %w", err)
	}
	if env.Products == nil {
		env.Products = []T{}
	}
	return catalog.Page[T]{Items: env.Products, TotalCount: env.Total}, nil
}

func pageQuery(page, limit int, search string) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if search != "" {
		q.Set("search", search)
	}
	return q
}

// ListLocal: GET /catalog/local/{tenantId}
func (c *Client) ListLocal(ctx context.Context, q catalog.Query) (catalog.Page[catalog.Product], error) {
	v := pageQuery(q.Page, q.PageSize, q.Search)
	if q.Sort != "" {
		v.Set("sort_by", string(q.Sort))
	}
	if q.Direction != "" {
		v.Set("sort_order", string(q.Direction))
	}
	var raw json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/catalog/local/%d", q.TenantID),
		query:  v,
	}, &raw)
	if err != nil {
		return catalog.Page[catalog.Product]{}, err
	}
	return decodePage[catalog.Product](raw)
}

// UpdateProduct: PATCH /catalog/local/{productId}
func (c *Client) UpdateProduct(ctx context.Context, productID int64, p catalog.Patch) (catalog.Product, error) {
	var out catalog.Product
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   fmt.Sprintf("/catalog/local/%d", productID),
		body:   p,
		auth:   true,
	}, &out)
	return out, err
}

// CreateProduct: POST /catalog/local/
func (c *Client) CreateProduct(ctx context.Context, p catalog.NewProduct) (catalog.Product, error) {
	var out catalog.Product
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/catalog/local/",
		body:   p,
		auth:   true,
	}, &out)
	return out, err
}

// ListGlobal: GET /catalog/global/
func (c *Client) ListGlobal(ctx context.Context, q catalog.GlobalQuery) (catalog.Page[catalog.GlobalProduct], error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/catalog/global/",
		query:  pageQuery(q.Page, q.PageSize, q.Search),
	}, &raw)
	if err != nil {
		return catalog.Page[catalog.GlobalProduct]{}, err
	}
	return decodePage[catalog.GlobalProduct](raw)
}
