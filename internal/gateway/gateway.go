// Package gateway serves the novelbuddy HTTP API: project management,
// streamed chat, file operations, memory, reviews, and a per-project
// WebSocket feed of file changes. It binds to loopback by default and
// follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/catonblt/novelbuddies/internal/config"
	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/core"
	"github.com/catonblt/novelbuddies/internal/cron"
	"github.com/catonblt/novelbuddies/internal/fileops"
	"github.com/catonblt/novelbuddies/internal/indexer"
	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/orchestrator"
	"github.com/catonblt/novelbuddies/internal/provider"
	"github.com/catonblt/novelbuddies/internal/security"
	"github.com/catonblt/novelbuddies/internal/telemetry"
	"github.com/catonblt/novelbuddies/internal/vcs"
)

// HubServiceName is the AppContext service holding the gateway's *Hub.
// It implements fileops.Observer and is registered during Provision so the
// dispatcher can be built with it before modules start.
const HubServiceName = "gateway.hub"

// ConfigServiceName is the AppContext service holding the loaded
// *config.Config, served redacted at /api/config.
const ConfigServiceName = "config"

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module. It is a leaf module: nothing
// imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	hub       *Hub
	startedAt time.Time

	// Resolved lazily at Start() via the service registry. Every one is
	// optional; handlers answer 503 when theirs is missing.
	root         string
	orchestrator *orchestrator.Orchestrator
	pipeline     *orchestrator.Pipeline
	dispatcher   *fileops.Dispatcher
	assembler    *ctxengine.Assembler
	memory       memory.Service
	history      memory.HistoryStore
	provider     provider.Provider
	queue        *indexer.Queue
	scheduler    *cron.Scheduler
	git          *vcs.Git
	metrics      *telemetry.Metrics
	limiter      *security.RateLimiter
	audit        *security.AuditLogger
	appConfig    *config.Config
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.hub = NewHub(originPatterns(g.config.CORSOrigins), g.logger)

	ctx.RegisterService(HubServiceName, g.hub)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	var errs []error
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		errs = append(errs, errors.New("gateway: invalid bind address: "+g.config.Bind))
	}
	errs = append(errs, g.config.Auth.validate())
	for _, o := range g.config.CORSOrigins {
		if o != "*" && originHost(o) == "" {
			errs = append(errs, fmt.Errorf("gateway: invalid cors origin %q", o))
		}
	}
	return errors.Join(errs...)
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolve()
	if !g.config.Auth.IsConfigured() && !isLoopback(g.config.Bind) {
		g.logger.Warn("gateway bound to a non-loopback address without auth", "addr", g.config.Bind)
	}

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.buildRouter(),
		ReadHeaderTimeout: g.config.ReadTimeout,
		ReadTimeout:       g.config.ReadTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
// WebSocket connections are hijacked and not covered by Shutdown, so the
// hub closes them first.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.hub != nil {
		g.hub.Close()
	}
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// resolve binds the optional services published by other modules and by
// the application wiring.
func (g *Gateway) resolve() {
	ctx := g.appCtx
	g.root = ctx.ProjectsRoot
	g.orchestrator, _ = core.Lookup[*orchestrator.Orchestrator](ctx, orchestrator.ServiceName)
	g.pipeline, _ = core.Lookup[*orchestrator.Pipeline](ctx, orchestrator.PipelineServiceName)
	g.dispatcher, _ = core.Lookup[*fileops.Dispatcher](ctx, fileops.ServiceName)
	g.assembler, _ = core.Lookup[*ctxengine.Assembler](ctx, ctxengine.AssemblerServiceName)
	g.history, _ = core.Lookup[memory.HistoryStore](ctx, memory.HistoryServiceName)
	g.provider, _ = core.Lookup[provider.Provider](ctx, provider.ServiceName)
	g.queue, _ = core.Lookup[*indexer.Queue](ctx, indexer.ServiceName)
	g.scheduler, _ = core.Lookup[*cron.Scheduler](ctx, cron.ServiceName)
	g.git, _ = core.Lookup[*vcs.Git](ctx, vcs.ServiceName)
	g.metrics, _ = core.Lookup[*telemetry.Metrics](ctx, telemetry.MetricsServiceName)
	g.limiter, _ = core.Lookup[*security.RateLimiter](ctx, security.RateLimiterServiceName)
	g.audit, _ = core.Lookup[*security.AuditLogger](ctx, security.AuditServiceName)
	g.appConfig, _ = core.Lookup[*config.Config](ctx, ConfigServiceName)

	if svc, ok := core.Lookup[memory.Service](ctx, memory.ServiceName); ok {
		g.memory = svc
	} else {
		g.memory = memory.Unavailable{}
	}
	if g.hub == nil {
		g.hub = NewHub(originPatterns(g.config.CORSOrigins), g.logger)
	}
}

func isLoopback(bind string) bool {
	host, _, err := net.SplitHostPort(bind)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
