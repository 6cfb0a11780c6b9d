package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/service"
	"github.com/foodtrack/foodtrack-backend/pkg/httputil"
	"github.com/foodtrack/foodtrack-backend/pkg/logger"
)

// StockHandler handles stock ledger endpoints
type StockHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.InventoryService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  log,
	}
}

// Adjust applies a signed delta to an item's quantity
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.AdjustStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.AdjustStock(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Set replaces an item's quantity with an absolute value
func (h *StockHandler) Set(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.SetStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.SetStock(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Acknowledge records that the item's current alert has been seen
func (h *StockHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.service.AcknowledgeAlert(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Audit returns the mutation history of one item
func (h *StockHandler) Audit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	page, perPage := pagination(r)

	entries, total, err := h.service.GetAuditTrail(r.Context(), id, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, paginationMeta(page, perPage, total))
}
