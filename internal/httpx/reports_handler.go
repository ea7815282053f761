package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/report"
)

type ReportSource interface {
	Latest(ctx context.Context, tenantID int64) (report.Inventory, error)
}

type Auditor interface {
	Audit(ctx context.Context, tenantID int64) (report.Inventory, error)
}

type ReportsHandler struct {
	Reports ReportSource
	Auditor Auditor // optional; enables POST
	Log     logrus.FieldLogger
}

func (h *ReportsHandler) Register(r chi.Router) {
	r.Get("/tenants/{tenantID}/reports/latest", h.latest)
	r.Get("/tenants/{tenantID}/reports/latest.xlsx", h.latestXLSX)
	if h.Auditor != nil {
		r.Post("/tenants/{tenantID}/reports", h.audit)
	}
}

func tenantParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tenantID"), 10, 64)
	return id, err == nil && id > 0
}

// load writes the error response itself and reports whether inv is usable.
func (h *ReportsHandler) load(w http.ResponseWriter, r *http.Request) (report.Inventory, bool) {
	tenantID, ok := tenantParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return report.Inventory{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	inv, err := h.Reports.Latest(ctx, tenantID)
	if errors.Is(err, report.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return report.Inventory{}, false
	}
	if err != nil {
		config.LogError(h.Log, "httpx", "load", "latest report", logrus.Fields{"tenant_id": tenantID}, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return report.Inventory{}, false
	}
	return inv, true
}

func (h *ReportsHandler) latest(w http.ResponseWriter, r *http.Request) {
	if inv, ok := h.load(w, r); ok {
		writeJSON(w, http.StatusOK, inv)
	}
}

func (h *ReportsHandler) latestXLSX(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, inv); err != nil {
		config.LogError(h.Log, "httpx", "latestXLSX", "render workbook", logrus.Fields{"tenant_id": inv.TenantID}, err)
		writeError(w, http.StatusInternalServerError, "failed to write file")
		return
	}
	w.Header().Set("Content-Type", report.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=inventory-%d.xlsx", inv.TenantID))
	_, _ = w.Write(buf.Bytes())
}

func (h *ReportsHandler) audit(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	inv, err := h.Auditor.Audit(r.Context(), tenantID)
	if err != nil {
		config.LogError(h.Log, "httpx", "audit", "run audit", logrus.Fields{"tenant_id": tenantID}, err)
		writeError(w, http.StatusBadGateway, "audit failed")
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}
