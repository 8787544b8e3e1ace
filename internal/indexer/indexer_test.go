package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/catonblt/novelbuddies/internal/indexer"
	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/memory/memorytest"
	"github.com/catonblt/novelbuddies/internal/project"
)

// blockingService holds every Index call until release is closed.
type blockingService struct {
	memorytest.MockService
	release chan struct{}
}

func (b *blockingService) Index(ctx context.Context, projectPath, projectID, relPath, content string) bool {
	<-b.release
	return b.MockService.Index(ctx, projectPath, projectID, relPath, content)
}

type countingRecorder struct {
	mu      sync.Mutex
	ok      int
	failed  int
	dropped int
}

func (r *countingRecorder) IndexJob(_ bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.ok++
	} else {
		r.failed++
	}
}

func (r *countingRecorder) IndexDropped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped++
}

func TestQueue_ProcessesJobs(t *testing.T) {
	t.Parallel()

	svc := &memorytest.MockService{}
	rec := &countingRecorder{}
	q := indexer.New(svc, indexer.Config{Workers: 2}, rec, nil)
	q.Start(context.Background())

	q.Enqueue(indexer.Job{ProjectPath: "/p", ProjectID: "p1", Path: "a.md", Content: "alpha"})
	q.Enqueue(indexer.Job{ProjectPath: "/p", ProjectID: "p1", Path: "b.md", Remove: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	calls := svc.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	var removed bool
	for _, c := range calls {
		if c.Path == "b.md" && c.Remove {
			removed = true
		}
	}
	if !removed {
		t.Error("remove job not delivered")
	}
	if rec.ok != 2 {
		t.Errorf("recorded %d successes, want 2", rec.ok)
	}
	if q.Enqueue(indexer.Job{Path: "late.md"}) {
		t.Error("Enqueue after Stop succeeded")
	}
}

func TestQueue_CoalescesAndDropsOldest(t *testing.T) {
	t.Parallel()

	svc := &memorytest.MockService{}
	rec := &countingRecorder{}
	// Workers are never started, so the queue only fills.
	q := indexer.New(svc, indexer.Config{QueueSize: 3}, rec, nil)

	for i := range 3 {
		q.Enqueue(indexer.Job{ProjectPath: "/p", Path: fmt.Sprintf("%d.md", i), Content: "v1"})
	}
	q.Enqueue(indexer.Job{ProjectPath: "/p", Path: "1.md", Content: "v2"})
	if got := q.Stats(); got.Pending != 3 || got.Dropped != 0 {
		t.Fatalf("after coalesce: %+v", got)
	}

	q.Enqueue(indexer.Job{ProjectPath: "/p", Path: "3.md", Content: "v1"})
	if got := q.Stats(); got.Pending != 3 || got.Dropped != 1 {
		t.Fatalf("after overflow: %+v", got)
	}
	if rec.dropped != 1 {
		t.Errorf("recorded %d drops, want 1", rec.dropped)
	}

	q.Start(context.Background())
	if err := q.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := map[string]string{}
	for _, c := range svc.Calls() {
		got[c.Path] = c.Content
	}
	if _, ok := got["0.md"]; ok {
		t.Error("oldest job was not dropped")
	}
	if got["1.md"] != "v2" {
		t.Errorf("1.md indexed with %q, want the newer content", got["1.md"])
	}
	if _, ok := got["3.md"]; !ok {
		t.Error("newest job missing")
	}
}

func TestQueue_EnqueueNeverBlocks(t *testing.T) {
	t.Parallel()

	svc := &blockingService{release: make(chan struct{})}
	q := indexer.New(svc, indexer.Config{QueueSize: 4, Workers: 1}, nil, nil)
	q.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := range 100 {
			q.Enqueue(indexer.Job{ProjectPath: "/p", Path: fmt.Sprintf("%d.md", i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Enqueue blocked on a stalled worker")
	}

	close(svc.release)
	if err := q.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st := q.Stats(); st.Dropped == 0 {
		t.Errorf("expected drops under load, got %+v", st)
	}
}

func TestQueue_StopHonorsContext(t *testing.T) {
	t.Parallel()

	svc := &blockingService{release: make(chan struct{})}
	defer close(svc.release)
	q := indexer.New(svc, indexer.Config{Workers: 1}, nil, nil)
	q.Start(context.Background())
	q.Enqueue(indexer.Job{ProjectPath: "/p", Path: "a.md"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := q.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop err = %v, want deadline exceeded", err)
	}
}

func TestReindex(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for rel, content := range map[string]string{
		"manuscript/chapters/01.md": "one",
		"research/notes.txt":        "notes",
		"research/map.png":          "png",
		".novel_buddies/memory.md":  "internal",
	} {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	svc := &memorytest.MockService{}
	res, err := indexer.Reindex(context.Background(), svc, project.NewReader(root), "p1", true, nil)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if res.Indexed != 2 || res.Failed != 0 {
		t.Errorf("result = %+v, want 2 indexed", res)
	}
}

func TestReindex_Unavailable(t *testing.T) {
	t.Parallel()

	_, err := indexer.Reindex(context.Background(), memory.Unavailable{}, project.NewReader(t.TempDir()), "p1", false, nil)
	if !errors.Is(err, indexer.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

// latestService keeps the last content written per path. Index of "v1"
// signals started and waits for release.
type latestService struct {
	memorytest.MockService
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	latest map[string]string
}

func (s *latestService) Index(_ context.Context, _, _, relPath, content string) bool {
	if content == "v1" {
		close(s.started)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[relPath] = content
	return true
}

func TestQueue_SameFileJobsRunInOrder(t *testing.T) {
	t.Parallel()

	svc := &latestService{
		started: make(chan struct{}),
		release: make(chan struct{}),
		latest:  make(map[string]string),
	}
	q := indexer.New(svc, indexer.Config{Workers: 4}, nil, nil)
	q.Start(context.Background())

	job := indexer.Job{ProjectPath: "/p", ProjectID: "p1", Path: "manuscript/chapters/ch01.md"}
	job.Content = "v1"
	q.Enqueue(job)
	<-svc.started

	// v1 is in flight, so v2 must wait for it even with idle workers.
	job.Content = "v2"
	q.Enqueue(job)
	q.Enqueue(indexer.Job{ProjectPath: "/p", ProjectID: "p1", Path: "notes.md", Content: "other"})
	deadline := time.Now().Add(2 * time.Second)
	for q.Stats().Processed < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := q.Stats().Pending; got != 1 {
		t.Errorf("Pending = %d while v1 runs, want 1 (v2 held back)", got)
	}
	close(svc.release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if got := svc.latest[job.Path]; got != "v2" {
		t.Errorf("index holds %q after v1 then v2, want v2", got)
	}
	if got := svc.latest["notes.md"]; got != "other" {
		t.Errorf("unrelated file = %q, want other", got)
	}
}
