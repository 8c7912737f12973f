package quote

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-dealdesk/internal/common"
	"github.com/noah-isme/backend-dealdesk/internal/deal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Enqueuer abstracts the asynq client for tests.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Handler exposes the quote endpoints.
type Handler struct {
	Deals   *deal.Service
	Builder Builder
	Tasks   Enqueuer
}

type emailRequest struct {
	To       string `json:"to" validate:"required,email"`
	Currency string `json:"currency" validate:"omitempty,alpha,len=3"`
}

// Get handles GET /api/v1/deals/{dealID}/quote.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Deals == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote handler not configured", nil)
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "dealID"))
	d, _, err := h.Deals.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	doc, err := h.Builder.Build(d, r.URL.Query().Get("currency"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// Email handles POST /api/v1/deals/{dealID}/quote/email by enqueueing the
// proposal for background delivery.
func (h *Handler) Email(w http.ResponseWriter, r *http.Request) {
	if h.Deals == nil || h.Tasks == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote handler not configured", nil)
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "dealID"))
	var body emailRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := validate.Struct(body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid email request", nil)
		return
	}

	// Reject before enqueueing when the deal cannot produce a quote at all.
	d, _, err := h.Deals.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if _, err := h.Builder.Build(d, body.Currency); err != nil {
		common.WriteError(w, err)
		return
	}

	task, err := NewEmailTask(id, body.To, body.Currency)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if _, err := h.Tasks.Enqueue(task); err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "could not enqueue quote email", nil)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": map[string]any{"enqueued": true}})
}
