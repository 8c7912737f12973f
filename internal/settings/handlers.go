package settings

import (
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-dealdesk/internal/common"
	"github.com/noah-isme/backend-dealdesk/internal/obs"
)

// Handler exposes the operator configuration endpoints.
type Handler struct {
	Service *Service
}

type payload struct {
	Version  int64    `json:"version"`
	Settings Settings `json:"settings"`
}

// Get handles GET /api/v1/settings.
func (h *Handler) Get(w http.ResponseWriter, _ *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	snap := h.Service.Current()
	common.JSON(w, http.StatusOK, map[string]any{"data": payload{Version: snap.Version, Settings: snap.Settings}})
}

// Put handles PUT /api/v1/settings with a full replacement configuration.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	var next Settings
	if err := common.DecodeJSON(r, &next); err != nil {
		common.WriteError(w, err)
		return
	}
	snap, err := h.Service.Update(r.Context(), next)
	if err != nil {
		h.writeUpdateError(w, err)
		return
	}
	if obs.SettingsUpdateTotal != nil {
		obs.SettingsUpdateTotal.WithLabelValues("updated").Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": payload{Version: snap.Version, Settings: snap.Settings}})
}

// Reset handles POST /api/v1/settings/reset, restoring factory defaults.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	snap, err := h.Service.Reset(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if obs.SettingsUpdateTotal != nil {
		obs.SettingsUpdateTotal.WithLabelValues("reset").Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": payload{Version: snap.Version, Settings: snap.Settings}})
}

func (h *Handler) writeUpdateError(w http.ResponseWriter, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]map[string]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, map[string]string{"field": fe.Namespace(), "rule": fe.Tag()})
		}
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid configuration", details)
		return
	}
	if common.IsAppError(err) {
		common.WriteError(w, err)
		return
	}
	common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
}
