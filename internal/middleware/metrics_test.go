package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithMetrics_RecordsRequestWithoutPanicking(t *testing.T) {
	handler := withMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/items/sync", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status to pass through unchanged, got %d", rr.Code)
	}
}

func TestWithMetrics_NormalizesPathForLabels(t *testing.T) {
	handler := withMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/items/550e8400-e29b-41d4-a716-446655440000", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}
