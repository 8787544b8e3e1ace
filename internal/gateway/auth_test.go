package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catonblt/novelbuddies/internal/security"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{BearerToken: "secret-token", BasicUser: "admin", BasicPass: "pass123"}

	tests := []struct {
		name    string
		target  string
		prepare func(r *http.Request)
		want    int
	}{
		{"valid bearer", "/", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-token") }, http.StatusOK},
		{"invalid bearer", "/", func(r *http.Request) { r.Header.Set("Authorization", "Bearer wrong") }, http.StatusUnauthorized},
		{"valid basic", "/", func(r *http.Request) { r.SetBasicAuth("admin", "pass123") }, http.StatusOK},
		{"invalid basic", "/", func(r *http.Request) { r.SetBasicAuth("admin", "wrong") }, http.StatusUnauthorized},
		{"query token", "/?access_token=secret-token", func(*http.Request) {}, http.StatusOK},
		{"wrong query token", "/?access_token=nope", func(*http.Request) {}, http.StatusUnauthorized},
		{"missing", "/", func(*http.Request) {}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := authMiddleware(cfg, nil)(okHandler)
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_BearerOnlyRejectsBasic(t *testing.T) {
	t.Parallel()

	handler := authMiddleware(AuthConfig{BearerToken: "tok"}, nil)(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "tok")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_AuditsFailures(t *testing.T) {
	t.Parallel()

	rec := &auditRecorder{}
	audit := security.NewAuditLogger(security.AuditLoggerConfig{OnEvent: rec.record})
	handler := authMiddleware(AuthConfig{BearerToken: "tok"}, audit)(okHandler)

	for _, header := range []string{"", "Bearer wrong", "Bearer tok"} {
		req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	events := rec.ofType(security.EventAuthFailure)
	if len(events) != 2 {
		t.Fatalf("auth failures = %d, want 2", len(events))
	}
	if events[0].Detail != "missing credentials" || events[1].Detail != "invalid credentials" {
		t.Errorf("details = %q, %q", events[0].Detail, events[1].Detail)
	}
	if events[0].Metadata["path"] != "/api/projects" {
		t.Errorf("metadata = %v", events[0].Metadata)
	}
}

func TestRouter_AuthProtectsAPI(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, withAuth(AuthConfig{BearerToken: "tok"}))

	if resp := env.do(t, http.MethodGet, env.url("/api/projects"), nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("api without token = %d, want 401", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, env.url("/api/projects?access_token=tok"), nil); resp.StatusCode != http.StatusOK {
		t.Errorf("api with token = %d, want 200", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, env.url("/health"), nil); resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d, want public 200", resp.StatusCode)
	}
}

func TestConstantTimeEqual(t *testing.T) {
	t.Parallel()

	if !constantTimeEqual("abc", "abc") {
		t.Error("equal strings should match")
	}
	if constantTimeEqual("abc", "abd") || constantTimeEqual("abc", "ab") {
		t.Error("different strings should not match")
	}
}
