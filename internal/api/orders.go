package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

// createdOrder tolerates the short acknowledgement {msg, order_id, total} some
// deployments answer with instead of the full order.
type createdOrder struct {
	orders.Order
	Total *decimal.Decimal `json:"total"`
}

func (c createdOrder) merge(sub orders.Submission) orders.Order {
	o := c.Order
	if o.TotalAmount.IsZero() && c.Total != nil {
		o.TotalAmount = *c.Total
	}
	if o.Status == "" {
		o.Status = orders.StatusNew
	}
	if len(o.Items) == 0 {
		o.Items = sub.Items
	}
	if o.TenantID == 0 {
		o.TenantID = sub.TenantID
	}
	if o.Email == "" {
		o.Email = sub.Email
	}
	if o.FirstName == "" && o.LastName == "" {
		o.FirstName, o.LastName = sub.FirstName, sub.LastName
	}
	if o.Address == "" {
		o.Address = sub.Address
	}
	if o.PhoneNumber == "" {
		o.PhoneNumber = sub.PhoneNumber
	}
	return o
}

// CreateOrder: POST /orders/ with the owner's bearer.
func (c *Client) CreateOrder(ctx context.Context, sub orders.Submission) (orders.Order, error) {
	sub.Email, sub.TenantID = "", 0
	var out createdOrder
	if err := c.do(ctx, request{method: http.MethodPost, path: "/orders/", body: sub, auth: true}, &out); err != nil {
		return orders.Order{}, err
	}
	return out.merge(sub), nil
}

// CreateGuestOrder: POST /orders/guest; sub must carry email and tenant_id.
func (c *Client) CreateGuestOrder(ctx context.Context, sub orders.Submission) (orders.Order, error) {
	var out createdOrder
	if err := c.do(ctx, request{method: http.MethodPost, path: "/orders/guest", body: sub}, &out); err != nil {
		return orders.Order{}, err
	}
	return out.merge(sub), nil
}

// ManageOrders: GET /orders/manage
func (c *Client) ManageOrders(ctx context.Context) ([]orders.Order, error) {
	var out []orders.Order
	if err := c.do(ctx, request{method: http.MethodGet, path: "/orders/manage", auth: true}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []orders.Order{}
	}
	return out, nil
}

// SetOrderStatus: PATCH /orders/{id}/status
func (c *Client) SetOrderStatus(ctx context.Context, orderID int64, status orders.Status) error {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   fmt.Sprintf("/orders/%d/status", orderID),
		body:   map[string]orders.Status{"status": status},
		auth:   true,
	}, nil)
}

// DeleteOrder: DELETE /orders/{id}
func (c *Client) DeleteOrder(ctx context.Context, orderID int64) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/orders/%d", orderID),
		auth:   true,
	}, nil)
}
