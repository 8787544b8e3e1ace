package cron_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/catonblt/novelbuddies/internal/cron"
	"github.com/catonblt/novelbuddies/internal/cron/crontest"
	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/memory/memorytest"
	"github.com/catonblt/novelbuddies/internal/project"
)

func newProject(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := project.SaveMetadata(dir, project.NewMetadata(name)); err != nil {
		t.Fatal(err)
	}
}

func TestReindexJob_Run(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	newProject(t, root, "harbor", map[string]string{"manuscript/chapters/01.md": "one"})
	newProject(t, root, "orchard", map[string]string{"planning/outline.md": "two", "research/notes.txt": "three"})

	svc := &memorytest.MockService{}
	j := &cron.ReindexJob{Root: root, Service: svc, Logger: slog.Default()}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	paths := map[string]bool{}
	for _, c := range svc.Calls() {
		paths[filepath.Base(c.ProjectPath)+"/"+c.Path] = true
	}
	for _, want := range []string{"harbor/manuscript/chapters/01.md", "orchard/planning/outline.md", "orchard/research/notes.txt"} {
		if !paths[want] {
			t.Errorf("%s not indexed; got %v", want, paths)
		}
	}
}

func TestReindexJob_UnavailableIsNoop(t *testing.T) {
	t.Parallel()

	j := &cron.ReindexJob{Root: t.TempDir(), Service: memory.Unavailable{}}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestReindexJob_Schedule(t *testing.T) {
	t.Parallel()

	if got := (&cron.ReindexJob{}).Schedule(); got != cron.DefaultReindexSchedule {
		t.Errorf("schedule = %q", got)
	}
	if got := (&cron.ReindexJob{ScheduleExpr: "0 3 * * *"}).Schedule(); got != "0 3 * * *" {
		t.Errorf("schedule = %q", got)
	}
}

func TestPruneJob_Run(t *testing.T) {
	t.Parallel()

	p := &crontest.MockPruner{}
	if err := (&cron.PruneJob{Limiter: p}).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Calls.Load() != 1 {
		t.Errorf("calls = %d", p.Calls.Load())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&cron.PruneJob{Limiter: p}).Run(ctx); err == nil {
		t.Error("expected cancellation error")
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(nil)
	err := cron.Register(s, cron.Config{Prune: cron.Off}, t.TempDir(), &memorytest.MockService{}, &crontest.MockPruner{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(context.Background())

	next := s.Next()
	if _, ok := next["reindex"]; !ok {
		t.Error("reindex job not registered")
	}
	if _, ok := next["ratelimit_prune"]; ok {
		t.Error("disabled prune job registered")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cfg     cron.Config
		wantErr bool
	}{
		{cron.Config{}, false},
		{cron.Config{Reindex: "0 3 * * *", Prune: cron.Off}, false},
		{cron.Config{Reindex: "every day"}, true},
		{cron.Config{Prune: "61 * * * *"}, true},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}
