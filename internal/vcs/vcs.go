// Package vcs records project changes in a git repository using go-git, so
// no git binary is needed on the host.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ServiceName is the AppContext service holding *Git.
const ServiceName = "vcs.git"

// Default commit identity.
const (
	DefaultAuthorName  = "Novel Buddies"
	DefaultAuthorEmail = "novelbuddies@localhost"
)

// Config is the commit identity.
type Config struct {
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

func (c *Config) defaults() {
	if c.AuthorName == "" {
		c.AuthorName = DefaultAuthorName
	}
	if c.AuthorEmail == "" {
		c.AuthorEmail = DefaultAuthorEmail
	}
}

// Git commits whole-worktree snapshots. Commits are serialized.
type Git struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// New creates a Git committer. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Git {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Git{cfg: cfg, logger: logger.With("component", "vcs"), now: time.Now}
}

// Init creates a repository at path and commits its current contents. An
// existing repository is left alone.
func (g *Git) Init(ctx context.Context, path, message string) error {
	g.mu.Lock()
	_, err := git.PlainInit(path, false)
	g.mu.Unlock()
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("vcs: init %s: %w", path, err)
	}
	g.logger.Info("initialized repository", "path", path)
	_, err = g.Commit(ctx, path, message)
	return err
}

// Commit stages every change under repoPath and commits it. It returns
// false without an error when repoPath is not a repository or the worktree
// is clean.
func (g *Git) Commit(ctx context.Context, repoPath, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	repo, err := git.PlainOpen(repoPath)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		g.logger.Info("no git repo found, skipping commit", "path", repoPath)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vcs: open %s: %w", repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("vcs: worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("vcs: status: %w", err)
	}
	if status.IsClean() {
		g.logger.Debug("nothing to commit", "path", repoPath)
		return false, nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("vcs: stage: %w", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.cfg.AuthorName,
			Email: g.cfg.AuthorEmail,
			When:  g.now(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("vcs: commit: %w", err)
	}
	g.logger.Info("commit successful", "path", repoPath, "hash", hash.String()[:7], "message", message)
	return true, nil
}

// Log returns up to limit commit messages, newest first.
func (g *Git) Log(repoPath string, limit int) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("vcs: open %s: %w", repoPath, err)
	}
	iter, err := repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("vcs: log: %w", err)
	}
	defer iter.Close()

	var out []string
	for len(out) < limit {
		c, err := iter.Next()
		if err != nil {
			break
		}
		out = append(out, c.Message)
	}
	return out, nil
}
