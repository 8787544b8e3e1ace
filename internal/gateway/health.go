package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/catonblt/novelbuddies/internal/provider"
)

// healthCheckTimeout bounds the provider round trip of a deep check.
const healthCheckTimeout = 10 * time.Second

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status     string `json:"status"` // "ok" or "degraded"
	Generation bool   `json:"generation"`
	Model      string `json:"model,omitempty"`
	Memory     bool   `json:"memory"`
	Review     bool   `json:"review"`
	Error      string `json:"error,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health. It reports
// degraded with 503 when no provider is configured. With ?deep=1 it also
// sends a minimal request to the provider.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:     "ok",
			Generation: g.orchestrator != nil && g.provider != nil,
			Memory:     g.memory != nil && g.memory.Available(),
			Review:     g.pipeline != nil,
		}
		if g.provider != nil {
			resp.Model = g.provider.ModelName()
		}

		if !resp.Generation {
			resp.Status = "degraded"
		} else if r.URL.Query().Get("deep") == "1" {
			if hc, ok := g.provider.(provider.HealthChecker); ok {
				ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
				err := hc.HealthCheck(ctx)
				cancel()
				if err != nil {
					resp.Status = "degraded"
					resp.Error = err.Error()
				}
			}
		}

		code := http.StatusOK
		if resp.Status == "degraded" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
