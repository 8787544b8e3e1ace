package fileops

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/catonblt/novelbuddies/internal/indexer"
	"github.com/catonblt/novelbuddies/internal/patch"
	"github.com/catonblt/novelbuddies/internal/security"
)

var tracer = otel.Tracer("github.com/catonblt/novelbuddies/internal/fileops")

// ServiceName is the AppContext service holding the shared *Dispatcher.
const ServiceName = "fileops.dispatcher"

// Enqueuer accepts background reindex jobs. indexer.Queue implements it.
type Enqueuer interface {
	Enqueue(job indexer.Job) bool
}

// Committer records a batch in version control. It reports false without
// an error when there was nothing to commit or repoPath is not a repository.
type Committer interface {
	Commit(ctx context.Context, repoPath, message string) (bool, error)
}

// Change describes one applied operation.
type Change struct {
	ProjectID string `json:"project_id"`
	Kind      Kind   `json:"operation"`
	Path      string `json:"path"`
	Agent     string `json:"agent_type,omitempty"`
	Diff      string `json:"diff,omitempty"`
}

// Observer is notified of applied operations. Calls happen on the
// dispatching goroutine and must not block.
type Observer interface {
	FileChanged(ctx context.Context, change Change)
	BatchApplied(ctx context.Context, projectID string, res BatchResult)
}

// Options configure a Dispatcher. Every field is optional.
type Options struct {
	Patcher    *patch.Engine
	Indexer    Enqueuer
	Committer  Committer
	Observers  []Observer
	Audit      *security.AuditLogger
	Logger     *slog.Logger
	AutoCommit bool
}

// Target is the project a batch applies to.
type Target struct {
	Root      string
	ProjectID string
}

// Result is the outcome of one operation.
type Result struct {
	Operation Kind           `json:"operation"`
	Path      string         `json:"path"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Diff      string         `json:"diff,omitempty"`
	Strategy  patch.Strategy `json:"strategy,omitempty"`
	Score     float64        `json:"score,omitempty"`
}

// BatchResult is the outcome of Dispatcher.Apply.
type BatchResult struct {
	Results    []Result `json:"results"`
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Committed  bool     `json:"committed"`
}

// Dispatcher applies operations to project trees.
type Dispatcher struct {
	patcher    *patch.Engine
	indexer    Enqueuer
	committer  Committer
	observers  []Observer
	audit      *security.AuditLogger
	logger     *slog.Logger
	autoCommit bool
}

// New creates a Dispatcher. A nil Patcher uses the default engine.
func New(opts Options) *Dispatcher {
	if opts.Patcher == nil {
		opts.Patcher = patch.NewEngine(patch.Config{})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		patcher:    opts.Patcher,
		indexer:    opts.Indexer,
		committer:  opts.Committer,
		observers:  opts.Observers,
		audit:      opts.Audit,
		logger:     opts.Logger.With("component", "fileops"),
		autoCommit: opts.AutoCommit,
	}
}

// Apply runs ops in order against target. A failed operation does not stop
// the batch; once ctx is done the remaining operations are skipped.
func (d *Dispatcher) Apply(ctx context.Context, target Target, ops []Op) BatchResult {
	ctx, span := tracer.Start(ctx, "fileops.Apply")
	defer span.End()

	res := BatchResult{Results: make([]Result, 0, len(ops)), Total: len(ops)}
	var applied []Op
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			res.Results = append(res.Results, Result{
				Operation: op.Kind,
				Path:      op.Path,
				Message:   fmt.Sprintf("Operation skipped: %v", err),
			})
			continue
		}
		r := d.applyOne(ctx, target, op)
		res.Results = append(res.Results, r)
		if r.Success {
			res.Successful++
			applied = append(applied, op)
		}
	}

	if d.autoCommit && d.committer != nil && len(applied) > 0 {
		msg := CommitMessage(ops, applied)
		ok, err := d.committer.Commit(ctx, target.Root, msg)
		switch {
		case err != nil:
			d.logger.Warn("commit failed", "project", target.ProjectID, "error", err)
		case ok:
			res.Committed = true
			d.logger.Info("committed changes", "project", target.ProjectID, "message", msg)
		default:
			d.logger.Info("no changes to commit", "project", target.ProjectID)
		}
	}

	span.SetAttributes(
		attribute.String("project", target.ProjectID),
		attribute.Int("ops.total", res.Total),
		attribute.Int("ops.successful", res.Successful),
		attribute.Bool("committed", res.Committed),
	)
	for _, o := range d.observers {
		o.BatchApplied(ctx, target.ProjectID, res)
	}
	return res
}

// CommitMessage builds the commit message for a batch: the reason of a
// single applied operation, or a count, prefixed by the agent of the first
// requested operation.
func CommitMessage(requested, applied []Op) string {
	msg := fmt.Sprintf("Multiple file operations (%d files)", len(applied))
	if len(applied) == 1 {
		msg = applied[0].reason()
	}
	agent := "unknown"
	if len(requested) > 0 && requested[0].Agent != "" {
		agent = requested[0].Agent
	}
	return "[" + agent + "] " + msg
}

func (d *Dispatcher) applyOne(ctx context.Context, target Target, op Op) Result {
	r := Result{Operation: op.Kind, Path: op.Path}

	if err := op.Validate(); err != nil {
		r.Message = fmt.Sprintf("Invalid operation: %v", err)
		d.record(target, op, r)
		return r
	}

	full, err := security.ResolvePath(target.Root, op.Path)
	if err != nil {
		r.Message = fmt.Sprintf("Invalid path: %s. Path must be within project directory.", op.Path)
		d.logger.Warn("rejected file operation path", "project", target.ProjectID, "path", op.Path, "error", err)
		d.audit.Log(security.AuditEvent{
			Type:      security.EventPathRejected,
			Project:   target.ProjectID,
			Agent:     op.Agent,
			Operation: string(op.Kind),
			Path:      op.Path,
			Detail:    err.Error(),
		})
		return r
	}
	rel := relative(target.Root, full, op.Path)

	var before, after string
	switch op.Kind {
	case KindCreate:
		after = op.Content
		r.Message, err = createFile(full, op.Content, op.Path)
	case KindUpdate:
		before, _ = readOptional(full)
		after = op.Content
		r.Message, err = updateFile(full, op.Content, op.Path)
	case KindDelete:
		before, _ = readOptional(full)
		r.Message, err = deleteFile(full, op.Path)
	case KindAppend:
		before, _ = readOptional(full)
		after, r.Message, err = appendFile(full, op.Content, op.Path)
	case KindInsert:
		before, after, r.Message, err = insertFile(full, op)
	case KindPatch:
		var pr patch.Result
		before, pr, r.Message, err = d.patchFile(full, op)
		after = pr.Content
		r.Strategy, r.Score = pr.Match.Strategy, pr.Match.Score
	}
	if err != nil {
		if r.Message == "" {
			r.Message = fmt.Sprintf("Operation failed: %v", err)
		}
		d.logger.Warn("file operation failed", "project", target.ProjectID, "op", op.Kind, "path", op.Path, "error", err)
		d.record(target, op, r)
		return r
	}

	r.Success = true
	if before != after {
		r.Diff = patch.Diff(rel, before, after)
	}
	d.logger.Info(r.Message, "project", target.ProjectID, "op", op.Kind)
	d.record(target, op, r)
	d.reindex(target, op.Kind, rel, after)

	change := Change{ProjectID: target.ProjectID, Kind: op.Kind, Path: rel, Agent: op.Agent, Diff: r.Diff}
	for _, o := range d.observers {
		o.FileChanged(ctx, change)
	}
	return r
}

func (d *Dispatcher) record(target Target, op Op, r Result) {
	d.audit.Log(security.AuditEvent{
		Type:      security.EventFileOperation,
		Project:   target.ProjectID,
		Agent:     op.Agent,
		Operation: string(op.Kind),
		Path:      op.Path,
		Success:   r.Success,
		Detail:    r.Message,
		Metadata:  map[string]string{"reason": op.reason()},
	})
}

// reindex schedules background indexing. A full or stopped queue never
// affects the operation's outcome.
func (d *Dispatcher) reindex(target Target, kind Kind, rel, content string) {
	if d.indexer == nil {
		return
	}
	job := indexer.Job{ProjectPath: target.Root, ProjectID: target.ProjectID, Path: rel, Content: content}
	if kind == KindDelete {
		job.Remove = true
		job.Content = ""
	}
	if !d.indexer.Enqueue(job) {
		d.logger.Debug("reindex not scheduled", "project", target.ProjectID, "path", rel)
	}
}

func createFile(full, content, name string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Sprintf("File already exists: %s. Use 'update' to modify it.", name), err
	}
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return "Created " + name, nil
}

func updateFile(full, content, name string) (string, error) {
	_, statErr := os.Stat(full)
	if err := writeFile(full, content); err != nil {
		return "", err
	}
	if errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Sprintf("Created %s (file did not exist)", name), nil
	}
	return "Updated " + name, nil
}

func deleteFile(full, name string) (string, error) {
	err := os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Sprintf("File not found (already deleted?): %s", name), nil
	}
	if err != nil {
		return "", err
	}
	return "Deleted " + name, nil
}

func appendFile(full, content, name string) (string, string, error) {
	existing, err := os.ReadFile(full)
	missing := errors.Is(err, fs.ErrNotExist)
	if err != nil && !missing {
		return "", "", err
	}
	out := string(existing)
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	out += content
	if err := writeFile(full, out); err != nil {
		return "", "", err
	}
	if missing {
		return out, fmt.Sprintf("Created %s (file did not exist)", name), nil
	}
	return out, "Appended to " + name, nil
}

func insertFile(full string, op Op) (string, string, string, error) {
	existing, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", "File not found: " + op.Path, err
	}
	if err != nil {
		return "", "", "", err
	}
	before := string(existing)
	off, err := op.Position.offset(before)
	if err != nil {
		msg := fmt.Sprintf("Insert position %s not found in %s", op.Position, op.Path)
		return before, before, msg, err
	}
	after := insertLines(before, off, op.Content)
	if err := writeFile(full, after); err != nil {
		return before, before, "", err
	}
	return before, after, fmt.Sprintf("Inserted into %s at %s", op.Path, op.Position), nil
}

func (d *Dispatcher) patchFile(full string, op Op) (string, patch.Result, string, error) {
	existing, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", patch.Result{}, "File not found: " + op.Path, err
	}
	if err != nil {
		return "", patch.Result{}, "", err
	}
	before := string(existing)
	pr, err := d.patcher.Apply(before, op.Find, op.Content)
	if err != nil {
		return before, pr, fmt.Sprintf("Patch failed for %s: %v", op.Path, err), err
	}
	if err := writeFile(full, pr.Content); err != nil {
		return before, pr, "", err
	}
	msg := fmt.Sprintf("Patched %s (strategy %s, similarity %.2f)", op.Path, pr.Match.Strategy, pr.Match.Score)
	return before, pr, msg, nil
}
