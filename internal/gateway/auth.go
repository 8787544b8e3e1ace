package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/catonblt/novelbuddies/internal/security"
)

// authMiddleware validates a Bearer token or Basic credentials using
// constant-time comparison. Browsers cannot set headers on WebSocket
// handshakes, so the bearer token is also accepted as the access_token
// query parameter. Failures are written to audit when it is non-nil.
func authMiddleware(cfg AuthConfig, audit *security.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.BearerToken != "" {
				token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if !ok {
					token = r.URL.Query().Get("access_token")
				}
				if token != "" && constantTimeEqual(token, cfg.BearerToken) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.BasicUser != "" && cfg.BasicPass != "" {
				user, pass, ok := r.BasicAuth()
				if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
					next.ServeHTTP(w, r)
					return
				}
			}

			detail := "invalid credentials"
			if r.Header.Get("Authorization") == "" && !r.URL.Query().Has("access_token") {
				detail = "missing credentials"
			}
			emitAuthFailure(audit, r, detail)
			writeError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func emitAuthFailure(audit *security.AuditLogger, r *http.Request, detail string) {
	if audit == nil {
		return
	}
	audit.Log(security.AuditEvent{
		Type:   security.EventAuthFailure,
		Detail: detail,
		Metadata: map[string]string{
			"remote_addr": r.RemoteAddr,
			"method":      r.Method,
			"path":        r.URL.Path,
		},
	})
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
