package sqlite

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	defaultBusyTimeout = 5000
	defaultIndexFile   = "memory.db"
	defaultHistoryFile = "history.db"
	defaultIndexDir    = ".novel_buddies"
)

// Config holds the SQLite memory module configuration.
type Config struct {
	// HistoryPath is the chat history database. Defaults to {DataDir}/history.db.
	HistoryPath string `yaml:"history_path"`

	// IndexDir is the directory, relative to each project root, that holds
	// the project's chunk index. Defaults to .novel_buddies.
	IndexDir string `yaml:"index_dir"`

	// OpenIndexes bounds how many project indexes stay open at once.
	OpenIndexes int `yaml:"open_indexes"`

	// ChunkWords and ChunkOverlap control file chunking, in words.
	ChunkWords   int `yaml:"chunk_words"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// WAL enables WAL journal mode for concurrent reads. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.IndexDir == "" {
		c.IndexDir = defaultIndexDir
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if c.OpenIndexes < 0 {
		return fmt.Errorf("sqlite: open_indexes must be non-negative, got %d", c.OpenIndexes)
	}
	if filepath.IsAbs(c.IndexDir) || strings.HasPrefix(filepath.Clean(c.IndexDir), "..") {
		return fmt.Errorf("sqlite: index_dir must stay inside the project, got %q", c.IndexDir)
	}
	return nil
}

// indexPath returns the chunk index file for a project.
func (c *Config) indexPath(projectPath string) string {
	return filepath.Join(projectPath, c.IndexDir, defaultIndexFile)
}
