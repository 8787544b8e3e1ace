package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/catonblt/novelbuddies/internal/memory"
)

// ChunkIndex is a memory.Index stored in one SQLite file with FTS5.
type ChunkIndex struct {
	db   *sql.DB
	path string
}

// Replace implements memory.Index. The old chunks are removed and the new
// ones written in one transaction.
func (x *ChunkIndex) Replace(ctx context.Context, source string, chunks []string) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source); err != nil {
		return fmt.Errorf("sqlite: delete chunks: %w", err)
	}
	for i, text := range chunks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (source, chunk_index, total_chunks, content)
			VALUES (?, ?, ?, ?)`,
			source, i, len(chunks), text,
		); err != nil {
			return fmt.Errorf("sqlite: insert chunk %d of %s: %w", i, source, err)
		}
	}
	return tx.Commit()
}

// Delete implements memory.Index.
func (x *ChunkIndex) Delete(ctx context.Context, source string) error {
	if _, err := x.db.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source); err != nil {
		return fmt.Errorf("sqlite: delete chunks: %w", err)
	}
	return nil
}

// Search implements memory.Index using FTS5 bm25 ranking.
func (x *ChunkIndex) Search(ctx context.Context, query string, limit int) ([]memory.Hit, error) {
	match := sanitizeFTS(query)
	if match == "" || limit <= 0 {
		return nil, nil
	}

	rows, err := x.db.QueryContext(ctx, `
		SELECT c.source, c.chunk_index, c.total_chunks, c.content
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []memory.Hit
	for rows.Next() {
		var h memory.Hit
		if err := rows.Scan(&h.Source, &h.ChunkIndex, &h.TotalChunks, &h.Text); err != nil {
			return nil, fmt.Errorf("sqlite: scan chunk: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: search chunks rows: %w", err)
	}
	return hits, nil
}

// Count implements memory.Index.
func (x *ChunkIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count chunks: %w", err)
	}
	return n, nil
}

// Sources implements memory.Index.
func (x *ChunkIndex) Sources(ctx context.Context) ([]string, error) {
	rows, err := x.db.QueryContext(ctx, "SELECT DISTINCT source FROM chunks ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("sqlite: scan source: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Reset implements memory.Index.
func (x *ChunkIndex) Reset(ctx context.Context) error {
	if _, err := x.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("sqlite: reset chunks: %w", err)
	}
	return nil
}

// Location implements memory.Index.
func (x *ChunkIndex) Location() string { return x.path }

// Close implements memory.Index.
func (x *ChunkIndex) Close() error { return x.db.Close() }

// sanitizeFTS turns free text into an FTS5 query that matches any of its
// words. Every term is quoted, so FTS5 operators in user text are inert.
func sanitizeFTS(query string) string {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		if seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}
