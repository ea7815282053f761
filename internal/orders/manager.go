package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/config"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCancelled         = errors.New("cancelled")
)

type Collaborator interface {
	ManageOrders(ctx context.Context) ([]Order, error)
	SetOrderStatus(ctx context.Context, orderID int64, status Status) error
	DeleteOrder(ctx context.Context, orderID int64) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Manager is the owner's order list. Status changes are never applied locally; the
// list is always reloaded from the API afterwards.
type Manager struct {
	api      Collaborator
	confirm  Confirmer
	sink     EventSink
	producer string
	log      logrus.FieldLogger

	mu   sync.Mutex
	list []Order
}

// NewManager wires a manager; sink may be nil.
func NewManager(api Collaborator, confirm Confirmer, sink EventSink, producer string, logger logrus.FieldLogger) *Manager {
	return &Manager{
		api:      api,
		confirm:  confirm,
		sink:     sink,
		producer: producer,
		log:      logger.WithField("module", "orders"),
	}
}

// List reloads the orders. On failure the previous list is kept and returned.
func (m *Manager) List(ctx context.Context) ([]Order, error) {
	list, err := m.api.ManageOrders(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		config.LogError(m.log, "orders", "List", "list orders", nil, err)
		return append([]Order(nil), m.list...), err
	}
	m.list = list
	return append([]Order(nil), list...), nil
}

func (m *Manager) Orders() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Order(nil), m.list...)
}

func (m *Manager) Get(orderID int64) (Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.list {
		if o.OrderID == orderID {
			return o, true
		}
	}
	return Order{}, false
}

func (m *Manager) Actions(o Order) []Action { return Actions(o.Status) }

// SetStatus moves a NEW order to CONFIRMED or REJECTED. The list is reloaded whether
// or not the API accepted the change; a rejection reason comes back verbatim.
func (m *Manager) SetStatus(ctx context.Context, orderID int64, to Status) error {
	o, ok := m.Get(orderID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, orderID)
	}
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	err := m.api.SetOrderStatus(ctx, orderID, to)
	_, listErr := m.List(ctx)
	if err != nil {
		config.LogError(m.log, "orders", "SetStatus", "change order status", map[string]any{"order_id": orderID, "to": to}, err)
		return err
	}

	Emit(ctx, m.sink, m.log, m.producer, EventOrderStatusChanged, orderID, OrderStatusChangedPayload{
		OrderID:  orderID,
		TenantID: o.TenantID,
		From:     o.Status,
		To:       to,
		Items:    o.Items,
	})
	if listErr != nil {
		return fmt.Errorf("reload orders: %w", listErr)
	}
	return nil
}

// Delete removes a CONFIRMED or REJECTED order after the user agrees. The order is
// dropped from the local list once the API acknowledges.
func (m *Manager) Delete(ctx context.Context, orderID int64) error {
	o, ok := m.Get(orderID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, orderID)
	}
	if !o.Status.Terminal() {
		return fmt.Errorf("%w: cannot delete a %s order", ErrInvalidTransition, o.Status)
	}
	if m.confirm == nil || !m.confirm.Confirm(fmt.Sprintf("Delete order #%d permanently?", orderID)) {
		return ErrCancelled
	}

	if err := m.api.DeleteOrder(ctx, orderID); err != nil {
		config.LogError(m.log, "orders", "Delete", "delete order", map[string]any{"order_id": orderID}, err)
		return err
	}

	m.mu.Lock()
	for i := range m.list {
		if m.list[i].OrderID == orderID {
			m.list = append(m.list[:i], m.list[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	Emit(ctx, m.sink, m.log, m.producer, EventOrderDeleted, orderID, OrderDeletedPayload{
		OrderID:  orderID,
		TenantID: o.TenantID,
		Status:   o.Status,
	})
	return nil
}
