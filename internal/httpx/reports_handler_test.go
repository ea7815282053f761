package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/report"
)

type memReports struct {
	byTenant map[int64]report.Inventory
	err      error
}

func (m *memReports) Latest(_ context.Context, tenantID int64) (report.Inventory, error) {
	if m.err != nil {
		return report.Inventory{}, m.err
	}
	inv, ok := m.byTenant[tenantID]
	if !ok {
		return report.Inventory{}, report.ErrNotFound
	}
	return inv, nil
}

type auditFunc func(ctx context.Context, tenantID int64) (report.Inventory, error)

func (f auditFunc) Audit(ctx context.Context, tenantID int64) (report.Inventory, error) {
	return f(ctx, tenantID)
}

func newServer(t *testing.T, h *ReportsHandler) *httptest.Server {
	t.Helper()
	r := NewRouter(config.NopLogger())
	h.Log = config.NopLogger()
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func sampleReport() report.Inventory {
	return report.Build(21, []catalog.Product{
		{ProductID: 1, Name: "Strat", SKU: "S", Price: decimal.NewFromInt(50), Stock: 2},
		{ProductID: 2, Name: "Tele", SKU: "T", Price: decimal.NewFromInt(10), Stock: 0},
	}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, &ReportsHandler{Reports: &memReports{}})
	resp := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLatest(t *testing.T) {
	srv := newServer(t, &ReportsHandler{Reports: &memReports{byTenant: map[int64]report.Inventory{21: sampleReport()}}})

	resp := get(t, srv.URL+"/tenants/21/reports/latest")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got report.Inventory
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 2, got.ProductCount)
	assert.True(t, got.TotalValue.Equal(decimal.NewFromInt(100)))

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/tenants/22/reports/latest").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/tenants/abc/reports/latest").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/tenants/0/reports/latest").StatusCode)
}

func TestLatest_StoreError(t *testing.T) {
	srv := newServer(t, &ReportsHandler{Reports: &memReports{err: errors.New("db down")}})
	resp := get(t, srv.URL+"/tenants/21/reports/latest")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "db down")
}

func TestLatestXLSX(t *testing.T) {
	srv := newServer(t, &ReportsHandler{Reports: &memReports{byTenant: map[int64]report.Inventory{21: sampleReport()}}})

	resp := get(t, srv.URL+"/tenants/21/reports/latest.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, report.ContentTypeXLSX, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "inventory-21.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Out of stock")
}

func TestAuditEndpoint(t *testing.T) {
	var audited int64
	h := &ReportsHandler{
		Reports: &memReports{},
		Auditor: auditFunc(func(_ context.Context, tenantID int64) (report.Inventory, error) {
			audited = tenantID
			if tenantID == 13 {
				return report.Inventory{}, errors.New("catalog unreachable")
			}
			return sampleReport(), nil
		}),
	}
	srv := newServer(t, h)

	resp, err := http.Post(srv.URL+"/tenants/21/reports", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(21), audited)

	resp2, err := http.Post(srv.URL+"/tenants/13/reports", "application/json", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp2.StatusCode)
}

func TestAuditEndpoint_DisabledWithoutAuditor(t *testing.T) {
	srv := newServer(t, &ReportsHandler{Reports: &memReports{}})
	resp, err := http.Post(srv.URL+"/tenants/21/reports", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
