package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anandkp/shelfwise-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func TestHealthLive(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	handler := HealthLive(cfg)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Shelfwise-Env"); got != "dev" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestHealthReadyChecksBackends(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	handler := HealthReady(cfg, stubPinger{}, stubPinger{}, testLogger(t))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHealthReadyFailsWhenDatabaseDown(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	handler := HealthReady(cfg, stubPinger{err: errors.New("connection refused")}, stubPinger{}, testLogger(t))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHealthReadyFailsWhenRedisDown(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	handler := HealthReady(cfg, stubPinger{}, stubPinger{err: errors.New("connection refused")}, testLogger(t))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d: %s", resp.Code, resp.Body.String())
	}
}
