package settings_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dealdesk/internal/settings"
)

type settingsEnvelope struct {
	Data struct {
		Version  int64             `json:"version"`
		Settings settings.Settings `json:"settings"`
	} `json:"data"`
}

func newTestRouter(t *testing.T) (chi.Router, *settings.Service) {
	t.Helper()
	svc, err := settings.NewService(context.Background(), &settings.MemRepo{})
	require.NoError(t, err)

	handler := &settings.Handler{Service: svc}
	r := chi.NewRouter()
	r.Get("/api/v1/settings", handler.Get)
	r.Put("/api/v1/settings", handler.Put)
	r.Post("/api/v1/settings/reset", handler.Reset)
	return r, svc
}

func TestGetReturnsCurrentConfiguration(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body settingsEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(1), body.Data.Version)
	require.Equal(t, 8.0, body.Data.Settings.TermDiscounts[3])
}

func TestPutReplacesConfiguration(t *testing.T) {
	r, svc := newTestRouter(t)

	next := settings.Default()
	next.TermDiscounts[3] = 12
	raw, err := json.Marshal(next)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body settingsEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(2), body.Data.Version)
	require.Equal(t, 0.12, svc.Current().Pricing.TermRates[3])
}

func TestPutRejectsInvalidLadder(t *testing.T) {
	r, svc := newTestRouter(t)

	next := settings.Default()
	next.ApprovalThresholds.Discount = []settings.DiscountThreshold{
		{MaxDiscount: 25, Approver: "Deal Desk"},
		{MaxDiscount: 15, Approver: "Sales Manager"},
	}
	raw, err := json.Marshal(next)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION")
	require.Equal(t, int64(1), svc.Current().Version)
}

func TestResetRestoresFactoryDefaults(t *testing.T) {
	r, svc := newTestRouter(t)

	next := settings.Default()
	next.PolicyText = "custom"
	_, err := svc.Update(context.Background(), next)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/settings/reset", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body settingsEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(3), body.Data.Version)
	require.Empty(t, body.Data.Settings.PolicyText)
}
