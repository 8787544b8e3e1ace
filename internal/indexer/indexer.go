// Package indexer feeds file changes to the memory service in the
// background. Jobs wait in a bounded queue; when it is full the oldest job
// is dropped, and a newer job for a file replaces any pending job for the
// same file. Jobs for one file never run concurrently, so they apply in the
// order they were enqueued.
package indexer

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/catonblt/novelbuddies/internal/memory"
)

// ServiceName is the AppContext service holding *Queue.
const ServiceName = "indexer.queue"

// Defaults for Config.
const (
	DefaultQueueSize = 256
	DefaultWorkers   = 2
)

// Config sizes the queue and worker pool.
type Config struct {
	QueueSize int `yaml:"queue_size"`
	Workers   int `yaml:"workers"`
}

func (c *Config) defaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
}

// Job indexes or removes one file.
type Job struct {
	ProjectPath string
	ProjectID   string
	Path        string
	Content     string
	Remove      bool
}

func (j Job) key() string {
	return j.ProjectPath + "\x00" + j.Path
}

// Recorder observes job outcomes. telemetry.Metrics implements it.
type Recorder interface {
	IndexJob(remove, ok bool)
	IndexDropped()
}

// Queue is a bounded, coalescing job queue drained by a worker pool.
type Queue struct {
	svc      memory.Service
	cfg      Config
	logger   *slog.Logger
	recorder Recorder

	mu      sync.Mutex
	jobs    []Job
	pending map[string]int // key → index in jobs
	running map[string]struct{}
	closed  bool
	wake    chan struct{}
	stop    chan struct{}

	dropped atomic.Uint64
	done    atomic.Uint64
	wg      sync.WaitGroup
}

// New creates a Queue feeding svc. Workers start with Start. A nil logger
// uses slog.Default(); recorder may be nil.
func New(svc memory.Service, cfg Config, recorder Recorder, logger *slog.Logger) *Queue {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		svc:      svc,
		cfg:      cfg,
		logger:   logger.With("component", "indexer"),
		recorder: recorder,
		pending:  make(map[string]int),
		running:  make(map[string]struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Enqueue adds job without blocking. It reports false only when the queue
// has been stopped.
func (q *Queue) Enqueue(job Job) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	key := job.key()
	if i, ok := q.pending[key]; ok {
		q.jobs[i] = job
		q.mu.Unlock()
		return true
	}

	if len(q.jobs) >= q.cfg.QueueSize {
		oldest := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.reindexPending()
		q.dropped.Add(1)
		q.logger.Warn("index queue full, dropped oldest job", "project", oldest.ProjectID, "path", oldest.Path)
		if q.recorder != nil {
			q.recorder.IndexDropped()
		}
	}

	q.pending[key] = len(q.jobs)
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// reindexPending rebuilds the key index after the front of jobs moved.
// The caller holds q.mu.
func (q *Queue) reindexPending() {
	clear(q.pending)
	for i, j := range q.jobs {
		q.pending[j.key()] = i
	}
}

// next takes the oldest job whose file is not being indexed by another
// worker and marks that file running.
func (q *Queue) next() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, job := range q.jobs {
		key := job.key()
		if _, busy := q.running[key]; busy {
			continue
		}
		q.jobs = slices.Delete(q.jobs, i, i+1)
		q.reindexPending()
		q.running[key] = struct{}{}
		return job, true
	}
	return Job{}, false
}

func (q *Queue) finish(job Job) {
	q.mu.Lock()
	delete(q.running, job.key())
	q.mu.Unlock()
}

// Start launches the workers. They exit once Stop has been called and the
// queue is drained, or when ctx is done.
func (q *Queue) Start(ctx context.Context) {
	for range q.cfg.Workers {
		q.wg.Go(func() { q.work(ctx) })
	}
}

func (q *Queue) work(ctx context.Context) {
	for {
		job, ok := q.next()
		if ok {
			q.run(ctx, job)
			q.finish(job)
			// Pass the wakeup on so idle workers pick up remaining jobs,
			// including any that waited on this file.
			select {
			case q.wake <- struct{}{}:
			default:
			}
			continue
		}

		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		case <-q.stop:
		}
	}
}

func (q *Queue) run(ctx context.Context, job Job) {
	var ok bool
	if job.Remove {
		ok = q.svc.Remove(ctx, job.ProjectPath, job.ProjectID, job.Path)
	} else {
		ok = q.svc.Index(ctx, job.ProjectPath, job.ProjectID, job.Path, job.Content)
	}
	q.done.Add(1)
	if !ok {
		q.logger.Warn("background indexing failed", "project", job.ProjectID, "path", job.Path, "remove", job.Remove)
	}
	if q.recorder != nil {
		q.recorder.IndexJob(job.Remove, ok)
	}
}

// Stop rejects new jobs and waits for the workers to drain the queue, or
// for ctx to be done.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.stop)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Pending   int    `json:"pending"`
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
}

// Stats returns the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	pending := len(q.jobs)
	q.mu.Unlock()
	return Stats{Pending: pending, Processed: q.done.Load(), Dropped: q.dropped.Load()}
}
