package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mlm-referral-app/internal/auth"
)

func newTestServer() *Server {
	jwtManager := auth.NewJWTManager("test-secret", 15*time.Minute, time.Hour)
	return NewServer(
		ServerConfig{Port: 0, Host: "127.0.0.1", ProductionMode: true},
		nil, // repo unused by the routes under test
		nil,
		jwtManager,
		nil,
		nil,
		nil,
	)
}

// TestRateLimiterAllowsWithinLimit verifies requests under the limit
// pass and the first over-limit request is blocked
func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("/api/auth/login") {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	if limiter.Allow("/api/auth/login") {
		t.Error("Fourth request should be blocked")
	}

	// Other endpoints have independent budgets
	if !limiter.Allow("/api/auth/register") {
		t.Error("Different endpoint should not share the budget")
	}
}

// TestRateLimiterWindowExpiry verifies old requests fall out of the
// window
func TestRateLimiterWindowExpiry(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)

	if !limiter.Allow("key") {
		t.Fatal("First request should be allowed")
	}
	if limiter.Allow("key") {
		t.Fatal("Second request inside the window should be blocked")
	}

	time.Sleep(20 * time.Millisecond)

	if !limiter.Allow("key") {
		t.Error("Request after window expiry should be allowed")
	}
}

// TestProtectedRoutesRequireAuth verifies member routes reject
// unauthenticated requests
func TestProtectedRoutesRequireAuth(t *testing.T) {
	server := newTestServer()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/user/dashboard"},
		{http.MethodGet, "/api/wallet/withdrawals"},
		{http.MethodPost, "/api/wallet/withdrawals"},
		{http.MethodGet, "/api/products"},
		{http.MethodGet, "/api/admin/withdrawals"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rec.Code)
			}
		})
	}
}

// TestAdminRoutesRequireAdminRole verifies a valid member token is not
// enough for admin routes
func TestAdminRoutesRequireAdminRole(t *testing.T) {
	server := newTestServer()

	token, err := server.jwtManager.GenerateAccessToken(auth.UserClaims{
		UserID: "user-1", Email: "member@example.com", IsAdmin: false,
	})
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/withdrawals", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
}

// TestUnknownRouteReturnsJSON verifies unmatched paths get a JSON 404
func TestUnknownRouteReturnsJSON(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/does-not-exist", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}
}

// TestMalformedBearerHeader verifies bad Authorization headers are
// rejected cleanly
func TestMalformedBearerHeader(t *testing.T) {
	server := newTestServer()

	for _, header := range []string{"Token abc", "Bearer", "bearer x y z"} {
		req := httptest.NewRequest(http.MethodGet, "/api/user/dashboard", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Header %q: expected 401, got %d", header, rec.Code)
		}
	}
}
