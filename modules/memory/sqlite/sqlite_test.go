package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/catonblt/novelbuddies/internal/core"
	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/provider"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()

	dir := t.TempDir()
	m := &Module{
		config: Config{
			HistoryPath: filepath.Join(dir, "history.db"),
			BusyTimeout: defaultBusyTimeout,
			ChunkWords:  20,
		},
	}
	m.config.defaults()

	ctx := core.NewAppContext(slog.Default(), dir, dir)
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	t.Cleanup(func() {
		_ = m.Stop(context.Background())
	})
	return m
}

// --- HistoryStore tests ---

func TestHistoryAppendAndAll(t *testing.T) {
	m := newTestModule(t)
	h := m.history
	ctx := context.Background()

	msgs := []memory.Message{
		{ProjectID: "p1", Role: provider.MessageRoleUser, Content: "hello"},
		{ProjectID: "p1", Role: provider.MessageRoleAssistant, Content: "hi there", Agent: "architect"},
		{ProjectID: "p1", Role: provider.MessageRoleUser, Content: "how are you?"},
	}
	for _, msg := range msgs {
		if _, err := h.Append(ctx, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := h.All(ctx, "p1")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(got) != len(msgs) {
		t.Fatalf("got %d messages, want %d", len(got), len(msgs))
	}
	for i, msg := range got {
		if msg.Role != msgs[i].Role || msg.Content != msgs[i].Content || msg.Agent != msgs[i].Agent {
			t.Errorf("message %d: got %+v, want %+v", i, msg, msgs[i])
		}
		if msg.ID == "" || msg.CreatedAt.IsZero() {
			t.Errorf("message %d not stamped: %+v", i, msg)
		}
	}
}

func TestHistoryRecent(t *testing.T) {
	m := newTestModule(t)
	h := m.history
	ctx := context.Background()

	for i := range 5 {
		if _, err := h.Append(ctx, memory.Message{ProjectID: "p1", Role: provider.MessageRoleUser, Content: fmt.Sprintf("msg-%d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = h.Append(ctx, memory.Message{ProjectID: "p2", Role: provider.MessageRoleUser, Content: "other"})

	recent, err := h.Recent(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "msg-3" || recent[1].Content != "msg-4" {
		t.Errorf("recent = %+v", recent)
	}
	if n, _ := h.Len(ctx, "p1"); n != 5 {
		t.Errorf("len = %d, want 5", n)
	}
}

func TestHistoryGetAndPurge(t *testing.T) {
	m := newTestModule(t)
	h := m.history
	ctx := context.Background()

	stored, err := h.Append(ctx, memory.Message{ProjectID: "p1", Role: provider.MessageRoleUser, Content: "keep me"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := h.Get(ctx, stored.ID)
	if err != nil || got.Content != "keep me" {
		t.Fatalf("get = %+v, %v", got, err)
	}

	if err := h.Purge(ctx, "p1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, err := h.Get(ctx, stored.ID); !errors.Is(err, memory.ErrMessageNotFound) {
		t.Errorf("get after purge err = %v, want ErrMessageNotFound", err)
	}
}

func TestHistoryConcurrentAppend(t *testing.T) {
	m := newTestModule(t)
	h := m.history
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			msg := memory.Message{ProjectID: "p1", Role: provider.MessageRoleUser, Content: fmt.Sprintf("m%d", i)}
			if _, err := h.Append(ctx, msg); err != nil {
				t.Errorf("append: %v", err)
			}
		})
	}
	wg.Wait()

	if n, _ := h.Len(ctx, "p1"); n != 20 {
		t.Errorf("len = %d, want 20", n)
	}
}

// --- Chunk index tests ---

func TestServiceIndexAndQuery(t *testing.T) {
	m := newTestModule(t)
	svc := m.Service()
	ctx := context.Background()
	project := t.TempDir()

	if got := svc.Query(ctx, project, "p1", "Elena", 5); got != memory.MsgEmpty {
		t.Errorf("empty query = %q", got)
	}

	if !svc.Index(ctx, project, "p1", "characters/elena.md", "Elena is thirty four and lives in Paris.") {
		t.Fatal("index failed")
	}
	if !svc.Index(ctx, project, "p1", "story-bible/cities.md", "Lyon is a river city with two rivers.") {
		t.Fatal("index failed")
	}

	got := svc.Query(ctx, project, "p1", "where does Elena live?", 5)
	if !strings.HasPrefix(got, "**[Source: characters/elena.md (chunk 1/1)]**") {
		t.Errorf("query = %q", got)
	}
	if got := svc.Query(ctx, project, "p1", "zeppelin", 5); got != memory.MsgNoResults {
		t.Errorf("miss = %q", got)
	}

	if _, err := os.Stat(filepath.Join(project, defaultIndexDir, defaultIndexFile)); err != nil {
		t.Errorf("index not stored in project: %v", err)
	}

	stats := svc.Stats(ctx, project, "p1")
	if stats.TotalChunks != 2 || stats.IndexedFiles != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestChunkIndexReplace(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenIndex(ctx, filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	if err := idx.Replace(ctx, "a.md", []string{"first draft", "second part"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Replace(ctx, "a.md", []string{"rewritten lighthouse"}); err != nil {
		t.Fatal(err)
	}

	if n, _ := idx.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	hits, err := idx.Search(ctx, "draft", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("stale chunk still searchable: %+v", hits)
	}
	hits, _ = idx.Search(ctx, "lighthouse", 5)
	if len(hits) != 1 || hits[0].TotalChunks != 1 {
		t.Errorf("hits = %+v", hits)
	}

	if err := idx.Delete(ctx, "a.md"); err != nil {
		t.Fatal(err)
	}
	if sources, _ := idx.Sources(ctx); len(sources) != 0 {
		t.Errorf("sources after delete = %v", sources)
	}
}

func TestChunkIndexSearchOperatorsInert(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenIndex(ctx, filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	_ = idx.Replace(ctx, "a.md", []string{"the NEAR station"})
	for _, q := range []string{`"unbalanced`, "NEAR(", "station*", "-station", "AND OR NOT"} {
		if _, err := idx.Search(ctx, q, 5); err != nil {
			t.Errorf("Search(%q): %v", q, err)
		}
	}
}

func TestSanitizeFTS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Where is Elena?", `"where" OR "is" OR "elena"`},
		{`"quoted" NEAR(x)`, `"quoted" OR "near" OR "x"`},
		{"  ...  ", ""},
		{"été été", `"été"`},
	}
	for _, tt := range tests {
		if got := sanitizeFTS(tt.in); got != tt.want {
			t.Errorf("sanitizeFTS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "negative busy", cfg: Config{BusyTimeout: -1}, wantErr: true},
		{name: "absolute index dir", cfg: Config{IndexDir: "/tmp/x"}, wantErr: true},
		{name: "escaping index dir", cfg: Config{IndexDir: "../x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.defaults()
			if err := tt.cfg.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
