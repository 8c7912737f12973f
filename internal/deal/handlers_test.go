package deal_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dealdesk/internal/deal"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	handler := &deal.Handler{Service: newTestService(t)}
	r := chi.NewRouter()
	r.Route("/api/v1/deals/{dealID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Post("/facts", handler.ApplyFacts)
		r.Post("/reset", handler.Reset)
	})
	return r
}

type dealEnvelope struct {
	Data struct {
		Version int64     `json:"version"`
		Deal    deal.Deal `json:"deal"`
	} `json:"data"`
}

func TestApplyFactsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"customer": {"name": "Globex", "employees": 1200, "segment": "Enterprise"},
		"products": [{"id": "salesNavigator.core", "quantity": 10}],
		"term": 2
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deals/s1/facts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope dealEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, int64(1), envelope.Data.Version)
	require.NotNil(t, envelope.Data.Deal.Pricing)
	require.Equal(t, 9600.0, envelope.Data.Deal.Pricing.Subtotal)
	require.Equal(t, 2, envelope.Data.Deal.Term)
	require.InDelta(t, 0.05, envelope.Data.Deal.Pricing.TermDiscount.Rate, 1e-9)
}

func TestApplyFactsRejectsInvalidRate(t *testing.T) {
	router := newTestRouter(t)

	body := `{"specialDiscounts": [{"type": "custom", "rate": 1.5}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deals/s1/facts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION")
}

func TestApplyFactsRejectsUnknownFields(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deals/s1/facts", strings.NewReader(`{"pricing": {}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAndResetEndpoints(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deals/fresh/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope dealEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Zero(t, envelope.Data.Version)
	require.Nil(t, envelope.Data.Deal.Pricing)

	body := `{"products": [{"id": "jobSlots.standard", "quantity": 2}]}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/deals/fresh/facts", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/deals/fresh/reset", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/deals/fresh/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Zero(t, envelope.Data.Version)
	require.Empty(t, envelope.Data.Deal.LineItems)
}
