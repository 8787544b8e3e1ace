package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/provider"
)

// HistoryStore implements memory.HistoryStore backed by SQLite.
type HistoryStore struct {
	db *sql.DB
}

// Append implements memory.HistoryStore.
func (h *HistoryStore) Append(ctx context.Context, msg memory.Message) (memory.Message, error) {
	if msg.ID == "" {
		msg.ID = memory.NewMessageID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO messages (id, project_id, seq, role, content, agent_type, created_at)
		VALUES (?, ?, COALESCE((SELECT MAX(seq) FROM messages WHERE project_id = ?), 0) + 1, ?, ?, ?, ?)`,
		msg.ID, msg.ProjectID, msg.ProjectID,
		string(msg.Role), msg.Content, msg.Agent,
		msg.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return memory.Message{}, fmt.Errorf("sqlite: append message: %w", err)
	}
	return msg, nil
}

// Recent implements memory.HistoryStore.
func (h *HistoryStore) Recent(ctx context.Context, projectID string, n int) ([]memory.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	msgs, err := h.query(ctx, `
		SELECT id, project_id, role, content, agent_type, created_at
		FROM messages
		WHERE project_id = ?
		ORDER BY seq DESC
		LIMIT ?`,
		projectID, n,
	)
	if err != nil {
		return nil, err
	}
	// Reverse to chronological order.
	slices.Reverse(msgs)
	return msgs, nil
}

// All implements memory.HistoryStore.
func (h *HistoryStore) All(ctx context.Context, projectID string) ([]memory.Message, error) {
	return h.query(ctx, `
		SELECT id, project_id, role, content, agent_type, created_at
		FROM messages
		WHERE project_id = ?
		ORDER BY seq ASC`,
		projectID,
	)
}

// Get implements memory.HistoryStore.
func (h *HistoryStore) Get(ctx context.Context, id string) (memory.Message, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, project_id, role, content, agent_type, created_at
		FROM messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return memory.Message{}, memory.ErrMessageNotFound
	}
	return msg, err
}

// Purge implements memory.HistoryStore.
func (h *HistoryStore) Purge(ctx context.Context, projectID string) error {
	if _, err := h.db.ExecContext(ctx, "DELETE FROM messages WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("sqlite: purge messages: %w", err)
	}
	return nil
}

// Len implements memory.HistoryStore.
func (h *HistoryStore) Len(ctx context.Context, projectID string) (int, error) {
	var count int
	err := h.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE project_id = ?", projectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count messages: %w", err)
	}
	return count, nil
}

func (h *HistoryStore) query(ctx context.Context, q string, args ...any) ([]memory.Message, error) {
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []memory.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: query messages rows: %w", err)
	}
	return msgs, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (memory.Message, error) {
	var (
		msg       memory.Message
		role      string
		createdAt string
	)
	if err := s.Scan(&msg.ID, &msg.ProjectID, &role, &msg.Content, &msg.Agent, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return msg, err
		}
		return msg, fmt.Errorf("sqlite: scan message: %w", err)
	}
	msg.Role = provider.MessageRole(role)
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return msg, fmt.Errorf("sqlite: parse created_at %q: %w", createdAt, err)
	}
	msg.CreatedAt = t
	return msg, nil
}
