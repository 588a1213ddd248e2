package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// ListTags returns the caller's tags, newest first.
func (db *DB) ListTags(ctx context.Context, userKey string) ([]models.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, created_at FROM tags
		WHERE user_key = ?
		ORDER BY created_at DESC, id DESC
	`, userKey)
	if err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTag inserts a tag. The UNIQUE(user_key, name) constraint is the
// authoritative duplicate guard; a violation surfaces as apperr.ErrConflict.
func (db *DB) CreateTag(ctx context.Context, userKey, name string) (*models.Tag, error) {
	ts := now()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO tags (user_key, name, created_at) VALUES (?, ?, ?)
	`, userKey, name, ts)
	if err != nil {
		return nil, asConflict(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: tag id: %w", err)
	}
	return &models.Tag{ID: id, Name: name, CreatedAt: ts}, nil
}

// TagExists reports whether the caller already owns a tag with this name.
func (db *DB) TagExists(ctx context.Context, userKey, name string) (bool, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE user_key = ? AND name = ?`, userKey, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: tag exists: %w", err)
	}
	return true, nil
}

// FindTagByName returns the caller's tag with this exact name, or
// apperr.ErrNotFound.
func (db *DB) FindTagByName(ctx context.Context, userKey, name string) (*models.Tag, error) {
	var t models.Tag
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM tags WHERE user_key = ? AND name = ?
	`, userKey, name).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find tag: %w", err)
	}
	return &t, nil
}
