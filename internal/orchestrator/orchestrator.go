package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/fileops"
	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/provider"
)

var tracer = otel.Tracer("github.com/catonblt/novelbuddies/internal/orchestrator")

// AppContext service names.
const (
	ServiceName         = "orchestrator"
	PipelineServiceName = "orchestrator.pipeline"
)

// Chat outcomes reported to the Recorder.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Recorder observes finished chats. telemetry.Metrics implements it.
type Recorder interface {
	ObserveChat(contentType, outcome string, generation time.Duration, contextTokens int)
}

// Options configures an Orchestrator. Provider is required; everything
// else degrades when absent: no History means no conversation memory, no
// Memory means no retrieval section, and no Dispatcher means every parsed
// operation is returned for confirmation.
type Options struct {
	Provider   provider.Provider
	History    memory.HistoryStore
	Memory     memory.Service
	Dispatcher *fileops.Dispatcher
	Assembler  *ctxengine.Assembler
	Recorder   Recorder
	Config     Config
	Logger     *slog.Logger
}

// Request is one chat turn.
type Request struct {
	// ProjectPath is the project's root directory.
	ProjectPath string

	// Project is the project's sidecar; its ID keys history and memory.
	Project project.Metadata

	Message string

	// ActiveFile is the project-relative path the author has open, if any.
	ActiveFile string

	// Autonomy is the author's autonomy level from 0 to 100. Nil uses
	// Config.DefaultAutonomy.
	Autonomy *int
}

// Response is the outcome of Handle.
type Response struct {
	Content     string               `json:"content"`
	ContentType ContentType          `json:"content_type"`
	Agents      []Agent              `json:"agents"`
	Reviewers   []Agent              `json:"reviewers"`
	Context     ctxengine.Report     `json:"context"`
	Usage       *provider.TokenUsage `json:"usage,omitempty"`

	// Operations holds the parsed operations of a complete reply.
	Operations []fileops.Op        `json:"operations,omitempty"`
	Rejected   []fileops.Rejection `json:"rejected,omitempty"`

	// RequireConfirmation is set when Operations were not applied and wait
	// for the author. Otherwise Applied holds their results.
	RequireConfirmation bool                 `json:"require_confirmation"`
	Applied             *fileops.BatchResult `json:"applied,omitempty"`

	// MessageID is the stored assistant message, "" when not stored.
	MessageID string `json:"message_id,omitempty"`
}

// Orchestrator runs chat turns against one provider.
type Orchestrator struct {
	provider   provider.Provider
	history    memory.HistoryStore
	memory     memory.Service
	dispatcher *fileops.Dispatcher
	assembler  *ctxengine.Assembler
	recorder   Recorder
	config     Config
	logger     *slog.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Memory == nil {
		opts.Memory = memory.Unavailable{}
	}
	if opts.Assembler == nil {
		opts.Assembler = ctxengine.NewAssembler(ctxengine.NewCharEstimator(0), ctxengine.ContextConfig{})
	}
	return &Orchestrator{
		provider:   opts.Provider,
		history:    opts.History,
		memory:     opts.Memory,
		dispatcher: opts.Dispatcher,
		assembler:  opts.Assembler,
		recorder:   opts.Recorder,
		config:     opts.Config.withDefaults(),
		logger:     opts.Logger.With("component", "orchestrator"),
	}
}

// Config returns the defaulted configuration.
func (o *Orchestrator) Config() Config { return o.config }

// Handle runs one chat turn, reporting progress to sink. File operations
// are parsed only from a reply that streamed to completion; when the
// stream fails or ctx is cancelled the partial reply is returned in
// Response.Content, an error event is emitted and no operation runs.
func (o *Orchestrator) Handle(ctx context.Context, req Request, sink EventSink) (Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Response{}, ErrEmptyMessage
	}
	if req.ProjectPath == "" {
		return Response{}, ErrNoProject
	}
	if o.provider == nil {
		return Response{}, provider.ErrNoProvider
	}

	ctx, span := tracer.Start(ctx, "orchestrator.Handle")
	defer span.End()

	start := time.Now()
	contentType, agents := Classify(req.Message)
	resp := Response{
		ContentType: contentType,
		Agents:      agents,
		Reviewers:   ReviewersFor(contentType),
	}
	projectID := req.Project.ID
	logger := o.logger.With("project", projectID, "content_type", contentType)
	span.SetAttributes(
		attribute.String("project.id", projectID),
		attribute.String("chat.content_type", string(contentType)),
	)

	sink.status(AgentStoryAdvocate, "Story Advocate interpreting your request...")

	history := o.recentHistory(ctx, projectID, logger)
	userMsg := provider.LLMMessage{Role: provider.MessageRoleUser, Content: req.Message}

	reader := project.NewReader(req.ProjectPath)
	collector := project.NewCollector(reader, o.assembler.Estimator(), logger)
	contextAgent := "general"
	if len(agents) > 0 {
		contextAgent = string(agents[0])
	}
	areq := collector.Collect(req.ActiveFile, contextAgent)
	areq.History = append(history, userMsg)
	assembly := o.assembler.Assemble(ctx, areq)
	resp.Context = assembly.Report

	var memorySection string
	if o.config.MemoryResults > 0 {
		memorySection = memory.Section(ctx, o.memory, req.ProjectPath, projectID, req.Message,
			o.config.MemoryResults, o.config.MemoryTokens, o.assembler.Estimator())
	}

	system := systemPrompt(
		advocatePrompt,
		fileOpsInstructions,
		ProjectContext(req.Project, req.ProjectPath),
		Routing(agents, resp.Reviewers),
		project.FileIndex(reader),
		assembly.Context,
		memorySection,
	)

	for _, a := range agents {
		sink.status(a, a.DisplayName()+" contributing...")
	}

	o.store(ctx, memory.Message{ProjectID: projectID, Role: provider.MessageRoleUser, Content: req.Message}, logger)

	sink.status(AgentStoryAdvocate, "Generating response...")
	logger.Info("generating reply",
		"agents", len(agents),
		"files", assembly.Report.FilesIncluded,
		"context_tokens", assembly.Report.TotalTokens,
	)

	genStart := time.Now()
	ch, err := o.provider.Stream(ctx, provider.CompletionRequest{
		System:      system,
		Messages:    assembly.History,
		MaxTokens:   o.config.MaxTokens,
		Temperature: o.config.Temperature,
	})
	if err != nil {
		return resp, o.fail(ctx, span, sink, resp, time.Since(genStart), fmt.Errorf("orchestrator: stream: %w", err), logger)
	}

	result, err := provider.Collect(ctx, ch, func(s string) {
		sink.emit(Event{Type: EventContent, Content: s})
	})
	resp.Content = result.Content
	resp.Usage = result.Usage
	if err != nil {
		// Let a producer that is still running observe cancellation.
		go func() {
			for range ch {
			}
		}()
		return resp, o.fail(ctx, span, sink, resp, time.Since(genStart), fmt.Errorf("orchestrator: stream: %w", err), logger)
	}
	generation := time.Since(genStart)

	stored := o.store(ctx, memory.Message{
		ProjectID: projectID,
		Role:      provider.MessageRoleAssistant,
		Content:   result.Content,
		Agent:     string(AgentStoryAdvocate),
	}, logger)
	resp.MessageID = stored.ID

	o.handleOperations(ctx, req, &resp, sink, logger)

	o.observe(contentType, OutcomeOK, generation, assembly.Report.TotalTokens)
	span.SetAttributes(
		attribute.Int("chat.operations", len(resp.Operations)),
		attribute.Bool("chat.require_confirmation", resp.RequireConfirmation),
	)
	logger.Info("chat completed",
		"operations", len(resp.Operations),
		"require_confirmation", resp.RequireConfirmation,
		"duration", time.Since(start),
	)

	sink.emit(Event{Type: EventDone, Context: &resp.Context})
	return resp, nil
}

// handleOperations parses the complete reply and either applies the
// operations or marks them pending, depending on the autonomy level.
func (o *Orchestrator) handleOperations(ctx context.Context, req Request, resp *Response, sink EventSink, logger *slog.Logger) {
	parsed := fileops.Parse(resp.Content)
	for i := range parsed.Ops {
		parsed.Ops[i].Agent = string(AgentStoryAdvocate)
	}
	resp.Operations = parsed.Ops
	resp.Rejected = parsed.Rejected
	if len(parsed.Ops) == 0 && len(parsed.Rejected) == 0 {
		return
	}
	for _, r := range parsed.Rejected {
		logger.Warn("rejected file operation", "index", r.Index, "path", r.Path, "reason", r.Reason)
	}

	resp.RequireConfirmation = len(parsed.Ops) > 0 &&
		(o.config.RequiresConfirmation(req.Autonomy) || o.dispatcher == nil)

	if len(parsed.Ops) > 0 && !resp.RequireConfirmation {
		batch := o.dispatcher.Apply(ctx, fileops.Target{Root: req.ProjectPath, ProjectID: req.Project.ID}, parsed.Ops)
		resp.Applied = &batch
	}

	sink.emit(Event{
		Type:                EventFileOperations,
		Operations:          parsed.Ops,
		Rejected:            parsed.Rejected,
		RequireConfirmation: resp.RequireConfirmation,
		Results:             resp.Applied,
	})
}

// fail records a failed or cancelled generation and emits the error event.
func (o *Orchestrator) fail(
	ctx context.Context,
	span trace.Span,
	sink EventSink,
	resp Response,
	generation time.Duration,
	err error,
	logger *slog.Logger,
) error {
	outcome := OutcomeError
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		outcome = OutcomeCanceled
		logger.Info("chat canceled", "partial_bytes", len(resp.Content))
	} else {
		logger.Error("chat failed", "error", err, "partial_bytes", len(resp.Content))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	o.observe(resp.ContentType, outcome, generation, resp.Context.TotalTokens)
	sink.emit(Event{Type: EventError, Error: err.Error()})
	return err
}

func (o *Orchestrator) observe(ct ContentType, outcome string, generation time.Duration, tokens int) {
	if o.recorder != nil {
		o.recorder.ObserveChat(string(ct), outcome, generation, tokens)
	}
}

func (o *Orchestrator) recentHistory(ctx context.Context, projectID string, logger *slog.Logger) []provider.LLMMessage {
	if o.history == nil || projectID == "" {
		return nil
	}
	msgs, err := o.history.Recent(ctx, projectID, o.assembler.Config().HistoryMessages)
	if err != nil {
		logger.Warn("loading history failed", "error", err)
		return nil
	}
	return memory.LLMMessages(msgs)
}

// store appends msg to the history store. Failures are logged; a chat
// turn never fails because its transcript could not be saved.
func (o *Orchestrator) store(ctx context.Context, msg memory.Message, logger *slog.Logger) memory.Message {
	if o.history == nil || msg.ProjectID == "" {
		return memory.Message{}
	}
	stored, err := o.history.Append(context.WithoutCancel(ctx), msg)
	if err != nil {
		logger.Warn("storing message failed", "role", msg.Role, "error", err)
		return memory.Message{}
	}
	return stored
}
