package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/security"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, g.instrument, corsMiddleware(g.config.CORSOrigins))

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.audit))
		}
		r.Get("/status", g.handleStatus())
		r.With(g.withProject).Get("/ws/projects/{project}", g.handleWebSocket)

		r.Route("/api", func(r chi.Router) {
			r.Get("/modules", g.handleListModules())
			r.Get("/config", g.handleGetConfig())

			r.Get("/projects", g.handleListProjects)
			r.Post("/projects", g.handleCreateProject)
			r.Route("/projects/{project}", func(r chi.Router) {
				r.Use(g.withProject)
				r.Get("/", g.handleGetProject)
				r.Post("/chat", g.handleChat)
				r.Post("/operations", g.handleApplyOperations)
				r.Post("/operations/parse", g.handleParseOperations)
				r.Post("/context", g.handleContextReport)
				r.Post("/review", g.handleReview)
				r.Post("/memory/query", g.handleMemoryQuery)
				r.Post("/memory/reindex", g.handleMemoryReindex)
				r.Get("/memory/stats", g.handleMemoryStats)
				r.Get("/messages", g.handleListMessages)
				r.Delete("/messages", g.handlePurgeMessages)
				r.Get("/files", g.handleListFiles)
				r.Get("/files/*", g.handleReadFile)
				r.Post("/export", g.handleExport)
			})
		})
	})

	return r
}

type projectKey struct{}

// withProject resolves the {project} URL parameter to a project directory
// directly under the projects root and loads its sidecar.
func (g *Gateway) withProject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "project")
		if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
			writeError(w, http.StatusBadRequest, "invalid project name")
			return
		}
		path, err := security.ResolvePath(g.root, name)
		if err != nil {
			g.audit.Log(security.AuditEvent{Type: security.EventPathRejected, Path: name, Detail: err.Error()})
			writeError(w, http.StatusBadRequest, "invalid project name")
			return
		}
		entry, err := project.Open(path)
		switch {
		case errors.Is(err, project.ErrNoMetadata), errors.Is(err, fs.ErrNotExist):
			writeError(w, http.StatusNotFound, "project not found: "+name)
			return
		case err != nil:
			g.logger.Error("opening project failed", "project", name, "error", err)
			writeError(w, http.StatusInternalServerError, "could not open project")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), projectKey{}, entry)))
	})
}

// projectFrom returns the project resolved by withProject.
func projectFrom(r *http.Request) project.Entry {
	entry, _ := r.Context().Value(projectKey{}).(project.Entry)
	return entry
}

// allow applies the per-project rate limit for kind, answering 429 and
// auditing the refusal when it is exceeded.
func (g *Gateway) allow(w http.ResponseWriter, kind string, entry project.Entry) bool {
	if g.limiter == nil {
		return true
	}
	if err := g.limiter.Allow(kind, entry.Metadata.ID); err != nil {
		g.audit.Log(security.AuditEvent{
			Type:    security.EventRateLimit,
			Project: entry.Metadata.ID,
			Detail:  kind,
		})
		writeError(w, http.StatusTooManyRequests, err.Error())
		return false
	}
	return true
}

// decode reads a JSON body within the configured size and depth limits.
func (g *Gateway) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := security.DecodeJSON(r.Body, g.config.MaxBodyBytes, v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, security.ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
	return false
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// corsMiddleware answers preflight requests and sets the allow headers for
// the configured origins. An empty list disables CORS; "*" allows any.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(origins) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (slices.Contains(origins, "*") || slices.Contains(origins, origin)) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// originPatterns converts CORS origins into the host patterns the
// WebSocket handshake checks.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			out = append(out, "*")
			continue
		}
		if host := originHost(o); host != "" {
			out = append(out, host)
		}
	}
	return out
}

func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return u.Host
}
