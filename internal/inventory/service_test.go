package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/report"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64][]catalog.Product
	fail     map[int64]error
	calls    int
}

func (f *fakeCatalog) ListLocal(_ context.Context, q catalog.Query) (catalog.Page[catalog.Product], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[q.TenantID]; err != nil {
		return catalog.Page[catalog.Product]{}, err
	}
	items := f.products[q.TenantID]
	return catalog.Page[catalog.Product]{Items: items, TotalCount: len(items)}, nil
}

type memStore struct {
	mu    sync.Mutex
	saved []report.Inventory
}

func (s *memStore) Save(_ context.Context, inv report.Inventory) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, inv)
	return int64(len(s.saved)), nil
}

func (s *memStore) tenants() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.saved))
	for _, inv := range s.saved {
		out = append(out, inv.TenantID)
	}
	return out
}

type memDedup struct{ seen map[string]bool }

func (d *memDedup) First(_ context.Context, id string) (bool, error) {
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memDedup) Forget(_ context.Context, id string) error {
	delete(d.seen, id)
	return nil
}

func newService(tenants ...int64) (*Service, *fakeCatalog, *memStore) {
	cat := &fakeCatalog{
		products: map[int64][]catalog.Product{
			21: {{ProductID: 1, TenantID: 21, Name: "Strat", Price: decimal.NewFromInt(50), Stock: 2}},
			22: {{ProductID: 2, TenantID: 22, Name: "Tele", Price: decimal.NewFromInt(10), Stock: 0}},
		},
		fail: map[int64]error{},
	}
	store := &memStore{}
	return &Service{
		Catalog:  cat,
		Store:    store,
		Dedup:    &memDedup{seen: map[string]bool{}},
		Tenants:  tenants,
		PageSize: 50,
		Lang:     language.English,
		Log:      config.NopLogger(),
		now:      func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	}, cat, store
}

func statusMessage(t *testing.T, tenantID int64, to orders.Status) (kafka.Message, orders.Envelope) {
	t.Helper()
	env, err := orders.NewEnvelope(orders.EventOrderStatusChanged, "storefront", "", 7,
		orders.OrderStatusChangedPayload{OrderID: 7, TenantID: tenantID, From: orders.StatusNew, To: to})
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafka.Message{
		Value:   b,
		Headers: []kafka.Header{{Key: kafkax.HeaderEventType, Value: []byte(env.EventType)}},
	}, env
}

func TestAudit(t *testing.T) {
	s, _, store := newService(21)
	inv, err := s.Audit(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, 2, inv.TotalUnits)
	assert.True(t, inv.TotalValue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []int64{21}, store.tenants())
}

func TestAuditAll_OneTenantFailing(t *testing.T) {
	s, cat, store := newService(21, 22, 23)
	cat.fail[23] = errors.New("unreachable")

	err := s.AuditAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant 23")
	assert.ElementsMatch(t, []int64{21, 22}, store.tenants())
}

func TestHandleStatusChanged_ConfirmedAudits(t *testing.T) {
	s, _, store := newService(21)
	m, _ := statusMessage(t, 21, orders.StatusConfirmed)

	require.NoError(t, s.HandleStatusChanged(context.Background(), m))
	assert.Equal(t, []int64{21}, store.tenants())

	require.NoError(t, s.HandleStatusChanged(context.Background(), m), "redelivery is acknowledged")
	assert.Len(t, store.tenants(), 1)
}

func TestHandleStatusChanged_Skips(t *testing.T) {
	s, cat, store := newService(21)
	ctx := context.Background()

	rejected, _ := statusMessage(t, 21, orders.StatusRejected)
	require.NoError(t, s.HandleStatusChanged(ctx, rejected))

	otherTenant, _ := statusMessage(t, 99, orders.StatusConfirmed)
	require.NoError(t, s.HandleStatusChanged(ctx, otherTenant))

	deleted := kafka.Message{Headers: []kafka.Header{{Key: kafkax.HeaderEventType, Value: []byte(orders.EventOrderDeleted)}}}
	require.NoError(t, s.HandleStatusChanged(ctx, deleted))

	assert.Empty(t, store.tenants())
	assert.Zero(t, cat.calls)
}

func TestHandleStatusChanged_FailedAuditCanBeRedelivered(t *testing.T) {
	s, cat, store := newService()
	cat.fail[21] = errors.New("down")
	m, _ := statusMessage(t, 21, orders.StatusConfirmed)
	assert.Error(t, s.HandleStatusChanged(context.Background(), m))

	delete(cat.fail, 21)
	require.NoError(t, s.HandleStatusChanged(context.Background(), m))
	assert.Equal(t, []int64{21}, store.tenants())
}

func TestHandleStatusChanged_BadPayload(t *testing.T) {
	s, _, _ := newService(21)
	m := kafka.Message{
		Value:   []byte("{not json"),
		Headers: []kafka.Header{{Key: kafkax.HeaderEventType, Value: []byte(orders.EventOrderStatusChanged)}},
	}
	assert.Error(t, s.HandleStatusChanged(context.Background(), m))
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _, store := newService(21)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Hour) }()

	require.Eventually(t, func() bool { return len(store.tenants()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
