package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/catonblt/novelbuddies/internal/config"
	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/core"
	"github.com/catonblt/novelbuddies/internal/cron"
	"github.com/catonblt/novelbuddies/internal/fileops"
	"github.com/catonblt/novelbuddies/internal/gateway"
	"github.com/catonblt/novelbuddies/internal/indexer"
	"github.com/catonblt/novelbuddies/internal/logging"
	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/orchestrator"
	"github.com/catonblt/novelbuddies/internal/patch"
	"github.com/catonblt/novelbuddies/internal/provider"
	"github.com/catonblt/novelbuddies/internal/security"
	"github.com/catonblt/novelbuddies/internal/telemetry"
	"github.com/catonblt/novelbuddies/internal/vcs"
)

// BuildOptions select what Build loads.
type BuildOptions struct {
	// Namespaces restricts the configured modules to these namespaces,
	// e.g. "memory" for commands that only need the chunk index. Nil loads
	// every configured module.
	Namespaces []string

	// DataDir overrides DefaultDataDir().
	DataDir string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// LogWriter receives log output. Defaults to os.Stderr.
	LogWriter io.Writer

	// NoSchedule leaves the periodic jobs unregistered, for one-shot
	// commands.
	NoSchedule bool
}

// Runtime is a wired application: the loaded modules plus the services
// built in code and published on the AppContext.
type Runtime struct {
	Config       *config.Config
	Logger       *slog.Logger
	App          *core.App
	Context      *core.AppContext
	ProjectsRoot string

	Metrics    *telemetry.Metrics
	Audit      *security.AuditLogger
	Limiter    *security.RateLimiter
	Memory     memory.Service
	Queue      *indexer.Queue
	Git        *vcs.Git
	Dispatcher *fileops.Dispatcher
	Assembler  *ctxengine.Assembler
	Scheduler  *cron.Scheduler

	// Orchestrator and Pipeline are nil when no provider module loaded.
	Orchestrator *orchestrator.Orchestrator
	Pipeline     *orchestrator.Pipeline

	closers []func(context.Context) error
}

// Build loads the configured modules and wires the shared services between
// them. Modules are provisioned but not started; call Start.
//
// Services are registered after LoadModules and before Start: the
// dispatcher needs the gateway hub published during Provision, and the
// gateway resolves the dispatcher and orchestrator in Start.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Runtime, error) {
	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}
	logCfg := cfg.Log
	if opts.LogLevel != "" {
		logCfg.Level = opts.LogLevel
	}

	redactor := security.NewRedactor()
	logger, logCloser, err := logging.New(logCfg, w, redactor)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Logger: logger}
	rt.closers = append(rt.closers, func(context.Context) error { return logCloser.Close() })

	root, err := ProjectsRoot(cfg)
	if err != nil {
		return nil, rt.fail(err)
	}
	rt.ProjectsRoot = root

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry, logger)
	if err != nil {
		return nil, rt.fail(err)
	}
	rt.closers = append(rt.closers, shutdownTracing)

	auditCfg := security.AuditLoggerConfig{Redactor: redactor}
	if path := cfg.Security.AuditLog; path != "" {
		f, err := openAppend(path)
		if err != nil {
			return nil, rt.fail(err)
		}
		auditCfg.Writer = f
		rt.closers = append(rt.closers, func(context.Context) error { return f.Close() })
	}
	rt.Audit = security.NewAuditLogger(auditCfg)
	rt.Limiter = security.NewRateLimiter(cfg.Security.RateLimits)
	rt.Metrics = telemetry.NewMetrics()

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	appCtx := core.NewAppContext(logger, dataDir, root).WithModuleConfigs(cfg.Modules)
	rt.Context = appCtx

	appCtx.RegisterService(security.RedactorServiceName, redactor)
	appCtx.RegisterService(security.AuditServiceName, rt.Audit)
	appCtx.RegisterService(security.RateLimiterServiceName, rt.Limiter)
	appCtx.RegisterService(telemetry.MetricsServiceName, rt.Metrics)
	appCtx.RegisterService(gateway.ConfigServiceName, cfg)

	rt.App = core.NewApp(appCtx)
	if err := rt.App.LoadModules(selectModules(config.Resolve(cfg), opts.Namespaces)); err != nil {
		return nil, rt.fail(err)
	}

	rt.wireServices(appCtx)
	if err := rt.wireScheduler(appCtx, !opts.NoSchedule); err != nil {
		rt.App.Stop()
		return nil, rt.fail(err)
	}
	return rt, nil
}

func (rt *Runtime) wireServices(appCtx *core.AppContext) {
	cfg, logger := rt.Config, rt.Logger

	mem, ok := core.Lookup[memory.Service](appCtx, memory.ServiceName)
	if !ok {
		logger.Warn("no memory module loaded, retrieval disabled")
		mem = memory.Unavailable{}
	}
	rt.Memory = mem
	history, _ := core.Lookup[memory.HistoryStore](appCtx, memory.HistoryServiceName)

	rt.Queue = indexer.New(mem, cfg.Indexer, rt.Metrics, logger)
	appCtx.RegisterService(indexer.ServiceName, rt.Queue)

	rt.Git = vcs.New(cfg.VCS, logger)
	appCtx.RegisterService(vcs.ServiceName, rt.Git)

	observers := []fileops.Observer{rt.Metrics}
	if hub, ok := core.Lookup[*gateway.Hub](appCtx, gateway.HubServiceName); ok {
		observers = append(observers, hub)
	}
	rt.Dispatcher = fileops.New(fileops.Options{
		Patcher:    patch.NewEngine(cfg.Patch),
		Indexer:    rt.Queue,
		Committer:  rt.Git,
		Observers:  observers,
		Audit:      rt.Audit,
		Logger:     logger,
		AutoCommit: cfg.Projects.AutoCommitEnabled(),
	})
	appCtx.RegisterService(fileops.ServiceName, rt.Dispatcher)

	ctxCfg := cfg.Context.WithDefaults()
	rt.Assembler = ctxengine.NewAssembler(ctxengine.NewEstimator(ctxCfg, logger), ctxCfg)
	appCtx.RegisterService(ctxengine.AssemblerServiceName, rt.Assembler)

	p, ok := core.Lookup[provider.Provider](appCtx, provider.ServiceName)
	if !ok {
		logger.Warn("no provider module loaded, chat and review disabled")
		return
	}
	rt.Orchestrator = orchestrator.New(orchestrator.Options{
		Provider:   p,
		History:    history,
		Memory:     mem,
		Dispatcher: rt.Dispatcher,
		Assembler:  rt.Assembler,
		Recorder:   rt.Metrics,
		Config:     cfg.Orchestrator,
		Logger:     logger,
	})
	rt.Pipeline = orchestrator.NewPipeline(p, cfg.Orchestrator, logger)
	appCtx.RegisterService(orchestrator.ServiceName, rt.Orchestrator)
	appCtx.RegisterService(orchestrator.PipelineServiceName, rt.Pipeline)
}

func (rt *Runtime) wireScheduler(appCtx *core.AppContext, jobs bool) error {
	rt.Scheduler = cron.NewScheduler(rt.Logger)
	if jobs {
		if err := cron.Register(rt.Scheduler, rt.Config.Cron, rt.ProjectsRoot, rt.Memory, rt.Limiter, rt.Logger); err != nil {
			return err
		}
	}
	appCtx.RegisterService(cron.ServiceName, rt.Scheduler)

	// The queue and scheduler run inside the module lifecycle, ahead of the
	// gateway so they outlive its shutdown.
	rt.App.InsertModule(gatewayModuleID, indexer.ServiceName, &queueModule{queue: rt.Queue})
	rt.App.InsertModule(gatewayModuleID, cron.ServiceName, &schedulerModule{scheduler: rt.Scheduler})
	return nil
}

// Start starts every module.
func (rt *Runtime) Start() error {
	return rt.App.Start()
}

// Close stops the modules and releases the log file, audit file and
// tracer provider.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.App.Stop()
	var errs []error
	for _, c := range slices.Backward(rt.closers) {
		errs = append(errs, c(ctx))
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *Runtime) fail(err error) error {
	for _, c := range slices.Backward(rt.closers) {
		_ = c(context.Background())
	}
	rt.closers = nil
	return err
}

const gatewayModuleID = "gateway.http"

func selectModules(ids, namespaces []string) []string {
	if namespaces == nil {
		return ids
	}
	return slices.DeleteFunc(slices.Clone(ids), func(id string) bool {
		return !slices.Contains(namespaces, core.ModuleID(id).Namespace())
	})
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("app: create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("app: open audit log: %w", err)
	}
	return f, nil
}

// queueModule runs the indexer queue inside the App lifecycle.
type queueModule struct {
	queue  *indexer.Queue
	cancel context.CancelFunc
}

func (m *queueModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: indexer.ServiceName}
}

func (m *queueModule) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.queue.Start(ctx)
	return nil
}

// Stop drains the queue, abandoning in-flight jobs when ctx expires.
func (m *queueModule) Stop(ctx context.Context) error {
	err := m.queue.Stop(ctx)
	if m.cancel != nil {
		m.cancel()
	}
	return err
}

// schedulerModule runs the cron scheduler inside the App lifecycle.
type schedulerModule struct {
	scheduler *cron.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: cron.ServiceName}
}

func (m *schedulerModule) Start() error { return m.scheduler.Start() }

func (m *schedulerModule) Stop(ctx context.Context) error { return m.scheduler.Stop(ctx) }
