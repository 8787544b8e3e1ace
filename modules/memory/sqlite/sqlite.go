// Package sqlite implements a persistent SQLite-backed memory module. It
// keeps one chunk index per project under the project directory and a
// server-wide chat history database. It uses modernc.org/sqlite (pure Go,
// no CGO) with FTS5 full-text search and WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/catonblt/novelbuddies/internal/core"
	"github.com/catonblt/novelbuddies/internal/memory"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ memory.HistoryStore = (*HistoryStore)(nil)
	_ memory.Index        = (*ChunkIndex)(nil)
	_ core.Configurable   = (*Module)(nil)
	_ core.Provisioner    = (*Module)(nil)
	_ core.Validator      = (*Module)(nil)
	_ core.Stopper        = (*Module)(nil)
)

// Module provides memory.Service and memory.HistoryStore.
type Module struct {
	config   Config
	db       *sql.DB
	logger   *slog.Logger
	history  *HistoryStore
	registry *memory.Registry
	service  *memory.ChunkService
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.HistoryPath == "" {
		m.config.HistoryPath = filepath.Join(ctx.DataDir, defaultHistoryFile)
	}

	db, err := openDB(context.TODO(), m.config.HistoryPath, m.config.walEnabled(), m.config.BusyTimeout, historySchema)
	if err != nil {
		return err
	}
	m.db = db
	m.history = &HistoryStore{db: db}

	registry, err := memory.NewRegistry(m.openIndex, m.config.OpenIndexes, m.logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	m.registry = registry
	m.service = memory.NewChunkService(registry, memory.ChunkOptions{
		Words:   m.config.ChunkWords,
		Overlap: m.config.ChunkOverlap,
	}, m.logger)

	ctx.RegisterService(memory.HistoryServiceName, m.history)
	ctx.RegisterService(memory.ServiceName, m.service)

	m.logger.Info("sqlite memory module provisioned",
		"history", m.config.HistoryPath,
		"index_dir", m.config.IndexDir,
		"wal", m.config.walEnabled(),
	)
	return nil
}

func (m *Module) openIndex(ctx context.Context, projectPath string) (memory.Index, error) {
	path := m.config.indexPath(projectPath)
	db, err := openDB(ctx, path, m.config.walEnabled(), m.config.BusyTimeout, indexSchema)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("opened project index", "path", path)
	return &ChunkIndex{db: db, path: path}, nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.db.PingContext(context.TODO()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("sqlite memory module stopping")
	if m.registry != nil {
		_ = m.registry.Close()
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Service returns the memory service.
func (m *Module) Service() memory.Service {
	return m.service
}

// History returns the HistoryStore implementation.
func (m *Module) History() memory.HistoryStore {
	return m.history
}
