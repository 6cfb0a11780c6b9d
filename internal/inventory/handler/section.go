package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/service"
	"github.com/foodtrack/foodtrack-backend/pkg/httputil"
	"github.com/foodtrack/foodtrack-backend/pkg/logger"
)

// SectionHandler handles section endpoints
type SectionHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewSectionHandler creates a new section handler
func NewSectionHandler(svc *service.InventoryService, log *logger.Logger) *SectionHandler {
	return &SectionHandler{
		service: svc,
		logger:  log,
	}
}

// List lists all sections
func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	sections, err := h.service.ListSections(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, sections)
}

// Get gets a section by ID
func (h *SectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	section, err := h.service.GetSection(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, section)
}

// Create creates a new section
func (h *SectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSectionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	section, err := h.service.CreateSection(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, section)
}

// pagination reads page/per_page query parameters with sane bounds.
func pagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	return page, perPage
}

// paginationMeta builds the response meta block.
func paginationMeta(page, perPage int, total int64) *httputil.Meta {
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	return &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}
