package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeLimiterStore struct {
	counts map[string]int64
}

func newFakeLimiterStore() *fakeLimiterStore {
	return &fakeLimiterStore{counts: map[string]int64{}}
}

func (f *fakeLimiterStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}

func otpRequest(phone string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp/start", strings.NewReader(`{"phone":"`+phone+`"}`))
	req.RemoteAddr = "203.0.113.5:4411"
	return req
}

func TestAuthRateLimit_BlocksPhoneAfterBudget(t *testing.T) {
	t.Parallel()

	policy := NewAuthRateLimitPolicy("otp", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, newFakeLimiterStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, otpRequest("9876543210"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d blocked early: %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, otpRequest("9876543210"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	// A different phone from the same IP is still allowed.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, otpRequest("9123456789"))
	if w.Code != http.StatusOK {
		t.Fatalf("other phone blocked: %d", w.Code)
	}
}

func TestAuthRateLimit_BlocksIPAfterBudget(t *testing.T) {
	t.Parallel()

	policy := NewAuthRateLimitPolicy("otp", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, newFakeLimiterStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, otpRequest("9876543210"))
	if w.Code != http.StatusOK {
		t.Fatalf("first request blocked: %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, otpRequest("9123456789"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

func TestAuthRateLimit_DisabledPolicyPassesThrough(t *testing.T) {
	t.Parallel()

	policy := NewAuthRateLimitPolicy("otp", 0, 5, 5)
	calls := 0
	handler := AuthRateLimit(policy, newFakeLimiterStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for i := 0; i < 10; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), otpRequest("9876543210"))
	}
	if calls != 10 {
		t.Fatalf("calls = %d, want 10", calls)
	}
}
