package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-dealdesk/internal/common"
)

// Handler exposes catalog endpoints.
type Handler struct {
	Service *Service
}

// ListProducts handles GET /api/v1/catalog/products.
func (h *Handler) ListProducts(w http.ResponseWriter, _ *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Service.List()})
}

// GetProduct handles GET /api/v1/catalog/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	product, err := h.Service.Get(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}
