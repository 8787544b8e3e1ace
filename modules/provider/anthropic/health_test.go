package anthropic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catonblt/novelbuddies/internal/provider"
)

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
		want    error
	}{
		{"success", http.StatusOK, messageJSON("h", "max_tokens"), false, nil},
		{"auth", http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid api key"}}`, true, nil},
		{"rate limit", http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow"}}`, true, provider.ErrRateLimit},
		{"down", http.StatusServiceUnavailable, `{"type":"error","error":{"type":"api_error","message":"down"}}`, true, provider.ErrProviderDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := newTestProvider(srv.URL).HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHealthCheck_NoKey(t *testing.T) {
	t.Parallel()

	a := newTestProvider("http://127.0.0.1:0")
	a.keyFound = false
	if err := a.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error without an API key")
	}
}
