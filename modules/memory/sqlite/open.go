package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// openDB opens a SQLite database at path, creating its directory, and
// applies the schema. The pool is limited to a single connection since
// SQLite serialises writes and PRAGMAs are per connection.
func openDB(ctx context.Context, path string, wal bool, busyTimeout int, schema []string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if wal {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(ctx, db, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenHistoryStore opens a standalone chat history database. The caller
// closes the returned *sql.DB when done.
func OpenHistoryStore(ctx context.Context, path string) (*HistoryStore, *sql.DB, error) {
	db, err := openDB(ctx, path, true, defaultBusyTimeout, historySchema)
	if err != nil {
		return nil, nil, err
	}
	return &HistoryStore{db: db}, db, nil
}

// OpenIndex opens the chunk index stored at path.
func OpenIndex(ctx context.Context, path string) (*ChunkIndex, error) {
	db, err := openDB(ctx, path, true, defaultBusyTimeout, indexSchema)
	if err != nil {
		return nil, err
	}
	return &ChunkIndex{db: db, path: path}, nil
}
