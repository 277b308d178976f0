package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestReadinessReportsFailingChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHealthHandler(
		WithReadinessCheck("postgres", func(context.Context) error { return nil }),
		WithReadinessCheck("redis", func(context.Context) error { return errors.New("dial tcp: refused") }),
		WithReadinessCheck("", func(context.Context) error { return errors.New("ignored") }),
	)
	router := gin.New()
	router.GET("/readyz", h.Readiness)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}

	var resp ReadyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "not_ready" || resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "unavailable" {
		t.Fatalf("unexpected readiness payload %+v", resp)
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("expected unnamed check to be dropped, got %v", resp.Checks)
	}
}

func TestStatusAlwaysOK(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/healthz", NewHealthHandler().Status)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rr.Code != http.StatusOK || resp.Status != "ok" || resp.StartedAt.IsZero() {
		t.Fatalf("unexpected status payload %d %+v", rr.Code, resp)
	}
}
