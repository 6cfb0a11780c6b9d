package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/service"
	"github.com/foodtrack/foodtrack-backend/pkg/httputil"
	"github.com/foodtrack/foodtrack-backend/pkg/logger"
)

// ExpiryHandler handles expiry lifecycle endpoints
type ExpiryHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewExpiryHandler creates a new expiry handler
func NewExpiryHandler(svc *service.InventoryService, log *logger.Logger) *ExpiryHandler {
	return &ExpiryHandler{
		service: svc,
		logger:  log,
	}
}

// MarkExpired transitions an item to expired
func (h *ExpiryHandler) MarkExpired(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.service.MarkExpired(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// ExtendExpiry moves an item's expiry date
func (h *ExpiryHandler) ExtendExpiry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.ExtendExpiryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.ExtendExpiry(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Dispose writes off stock
func (h *ExpiryHandler) Dispose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.DisposeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.Dispose(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// RunScan triggers one expiry scan pass on demand
func (h *ExpiryHandler) RunScan(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RunExpiryScan(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}
