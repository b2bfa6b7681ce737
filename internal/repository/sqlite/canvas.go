package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NathanTDL/tldraw-ai/internal/apperror"
	"github.com/NathanTDL/tldraw-ai/internal/model"
	"github.com/NathanTDL/tldraw-ai/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` assigns a nil *Y to a variable of interface type X.
// If *Y doesn't implement X, the compiler errors immediately rather than at
// the first call site that passes *DB around. A Go best practice for any
// interface implementation.
var _ repository.CanvasRepository = (*DB)(nil)

// Create inserts a new canvas row.
//
// ID HANDLING:
// Canvases are created locally-first: the session manager generates a UUID
// before the row exists, so an incoming canvas usually already has an ID.
// We only generate one here if the caller left it empty (e.g. a canvas
// created straight from the HTTP API).
func (db *DB) Create(ctx context.Context, canvas *model.Canvas) error {
	if canvas.ID == "" {
		canvas.ID = uuid.NewString()
	}

	now := time.Now()
	canvas.CreatedAt = now
	canvas.UpdatedAt = now
	if canvas.Title == "" {
		canvas.Title = model.DefaultTitle(now)
	}

	// Parameterized query — the driver escapes the values, never build SQL
	// with string concatenation.
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO canvases (id, user_id, title, data, is_pinned, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		canvas.ID,
		canvas.UserID,
		canvas.Title,
		canvas.Data,
		canvas.IsPinned,
		canvas.CreatedAt,
		canvas.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating canvas: %w", err)
	}

	return nil
}

// GetByID retrieves a single canvas by its ID.
// Returns apperror.ErrNotFound if no row exists — callers (notably the
// session manager's load path) rely on that sentinel to mean "missing row",
// which it treats as an empty canvas rather than an error.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Canvas, error) {
	var c model.Canvas

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, data, is_pinned, created_at, updated_at
		 FROM canvases
		 WHERE id = ?`,
		id,
	).Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.Data,
		&c.IsPinned,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		// sql.ErrNoRows is a sentinel — database/sql doesn't wrap it, so ==
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("canvas", id)
		}
		return nil, fmt.Errorf("sqlite: getting canvas %s: %w", id, err)
	}

	return &c, nil
}

// ListByUser returns all of a user's canvases for the sidebar history:
// pinned canvases first, then most recently updated first.
func (db *DB) ListByUser(ctx context.Context, userID string) ([]model.Canvas, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, title, data, is_pinned, created_at, updated_at
		 FROM canvases
		 WHERE user_id = ?
		 ORDER BY is_pinned DESC, updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing canvases: %w", err)
	}
	// sql.Rows holds a pool connection — always close, even on panic.
	defer rows.Close()

	canvases := make([]model.Canvas, 0, 16)

	for rows.Next() {
		var c model.Canvas
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Title, &c.Data, &c.IsPinned,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning canvas row: %w", err)
		}
		canvases = append(canvases, c)
	}

	// rows.Err() catches errors that happened DURING iteration
	// (e.g. the connection dropping mid-scan).
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating canvases: %w", err)
	}

	return canvases, nil
}

// Update rewrites a canvas's metadata (title, pin state).
// Snapshot data goes through SaveData instead — the two writes have
// different callers and different frequencies.
func (db *DB) Update(ctx context.Context, canvas *model.Canvas) error {
	canvas.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE canvases
		 SET title = ?, is_pinned = ?, updated_at = ?
		 WHERE id = ?`,
		canvas.Title,
		canvas.IsPinned,
		canvas.UpdatedAt,
		canvas.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating canvas %s: %w", canvas.ID, err)
	}

	// RowsAffected tells us whether the WHERE clause matched anything.
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("canvas", canvas.ID)
	}

	return nil
}

// SaveData replaces the serialized snapshot and refreshes updated_at.
// This is the hot write path — every debounced autosave and every manual or
// forced save lands here.
func (db *DB) SaveData(ctx context.Context, id, data string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE canvases SET data = ?, updated_at = ? WHERE id = ?`,
		data,
		time.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving canvas data %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("canvas", id)
	}

	return nil
}

// Delete removes a canvas permanently. Same pattern as Update — check
// RowsAffected to detect "not found".
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM canvases WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting canvas %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("canvas", id)
	}

	return nil
}
