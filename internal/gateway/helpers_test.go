package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/core"
	"github.com/catonblt/novelbuddies/internal/fileops"
	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/memory/memorytest"
	"github.com/catonblt/novelbuddies/internal/orchestrator"
	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/provider"
	"github.com/catonblt/novelbuddies/internal/provider/providertest"
	"github.com/catonblt/novelbuddies/internal/security"
	"github.com/catonblt/novelbuddies/internal/telemetry"
)

const testProject = "lyon"

// auditRecorder collects audit events.
type auditRecorder struct {
	mu     sync.Mutex
	events []security.AuditEvent
}

func (a *auditRecorder) record(ev security.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *auditRecorder) ofType(t security.EventType) []security.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []security.AuditEvent
	for _, ev := range a.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// testEnv is a gateway wired to test doubles, served over httptest.
type testEnv struct {
	g        *Gateway
	srv      *httptest.Server
	root     string
	entry    project.Entry
	provider *providertest.MockProvider
	history  *memory.InMemoryHistoryStore
	memory   *memorytest.MockService
	audit    *auditRecorder
}

// envOption adjusts the environment before the server starts.
type envOption func(*testEnv, *core.AppContext)

func withRateLimits(cfg security.RateLimitConfig) envOption {
	return func(_ *testEnv, ctx *core.AppContext) {
		ctx.RegisterService(security.RateLimiterServiceName, security.NewRateLimiter(cfg))
	}
}

func withMetrics(m *telemetry.Metrics) envOption {
	return func(_ *testEnv, ctx *core.AppContext) {
		ctx.RegisterService(telemetry.MetricsServiceName, m)
	}
}

func withAuth(auth AuthConfig) envOption {
	return func(e *testEnv, _ *core.AppContext) { e.g.config.Auth = auth }
}

// withReply makes the provider stream reply.
func withReply(reply string) envOption {
	return func(e *testEnv, _ *core.AppContext) {
		e.provider.StreamFunc = providertest.StreamText(nil, reply)
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	root := t.TempDir()
	meta := project.NewMetadata("The Lyon Affair")
	meta.Genre = "Literary"
	if _, err := project.Scaffold(filepath.Join(root, testProject), meta); err != nil {
		t.Fatalf("Scaffold: %v", err)
	}
	entry, err := project.Open(filepath.Join(root, testProject))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := core.NewAppContext(logger, t.TempDir(), root)

	env := &testEnv{
		root:  root,
		entry: entry,
		provider: &providertest.MockProvider{
			StreamFunc:   providertest.StreamText(nil, "Hello ", "from the advocate."),
			CompleteFunc: providertest.CompleteText(`{"strengths": ["Vivid"], "concerns": [], "suggestions": []}`),
		},
		history: memory.NewInMemoryHistoryStore(),
		memory:  &memorytest.MockService{},
		audit:   &auditRecorder{},
	}

	g := &Gateway{}
	g.config.defaults()
	env.g = g
	for _, opt := range opts {
		opt(env, appCtx)
	}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	audit := security.NewAuditLogger(security.AuditLoggerConfig{OnEvent: env.audit.record})
	dispatcher := fileops.New(fileops.Options{Observers: []fileops.Observer{g.hub}, Audit: audit, Logger: logger})
	assembler := ctxengine.NewAssembler(ctxengine.NewCharEstimator(0), ctxengine.ContextConfig{})

	appCtx.RegisterService(provider.ServiceName, provider.Provider(env.provider))
	appCtx.RegisterService(memory.ServiceName, memory.Service(env.memory))
	appCtx.RegisterService(memory.HistoryServiceName, memory.HistoryStore(env.history))
	appCtx.RegisterService(security.AuditServiceName, audit)
	appCtx.RegisterService(fileops.ServiceName, dispatcher)
	appCtx.RegisterService(ctxengine.AssemblerServiceName, assembler)
	appCtx.RegisterService(orchestrator.ServiceName, orchestrator.New(orchestrator.Options{
		Provider:   env.provider,
		History:    env.history,
		Memory:     env.memory,
		Dispatcher: dispatcher,
		Assembler:  assembler,
		Logger:     logger,
	}))
	appCtx.RegisterService(orchestrator.PipelineServiceName, orchestrator.NewPipeline(env.provider, orchestrator.Config{}, logger))

	g.resolve()
	env.srv = httptest.NewServer(g.buildRouter())
	t.Cleanup(func() {
		g.hub.Close()
		env.srv.Close()
	})
	return env
}

func (e *testEnv) url(path string) string { return e.srv.URL + path }

func (e *testEnv) projectURL(path string) string {
	return e.srv.URL + "/api/projects/" + testProject + path
}

// do sends a request with an optional JSON body.
func (e *testEnv) do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// decodeBody decodes a JSON response, failing on an unexpected status.
func decodeBody(t *testing.T, resp *http.Response, wantStatus int, v any) {
	t.Helper()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, wantStatus, body)
	}
	if v == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// readEvents parses a text/event-stream body.
func readEvents(t *testing.T, r io.Reader) []orchestrator.Event {
	t.Helper()
	var events []orchestrator.Event
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var ev orchestrator.Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("bad event %q: %v", data, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("reading events: %v", err)
	}
	return events
}

// failingHealthProvider is a provider whose health check fails.
type failingHealthProvider struct {
	providertest.MockProvider
	err error
}

func (p *failingHealthProvider) HealthCheck(context.Context) error { return p.err }

var _ provider.HealthChecker = (*failingHealthProvider)(nil)
