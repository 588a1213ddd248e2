package store

import (
	"context"
	"fmt"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// CreateLink inserts a directed edge between two owned notes. Both endpoints
// must exist under userKey (apperr.ErrNotFound otherwise); a duplicate edge
// surfaces as apperr.ErrConflict via the composite primary key.
func (db *DB) CreateLink(ctx context.Context, userKey string, fromID, toID int64) (*models.Link, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notes WHERE user_key = ? AND id IN (?, ?)
	`, userKey, fromID, toID).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("store: check link endpoints: %w", err)
	}
	if n != 2 {
		return nil, apperr.ErrNotFound
	}

	ts := now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO note_links (user_key, from_note_id, to_note_id, created_at)
		VALUES (?, ?, ?, ?)
	`, userKey, fromID, toID, ts)
	if err != nil {
		return nil, asConflict(err)
	}
	return &models.Link{FromID: fromID, ToID: toID, CreatedAt: ts}, nil
}

// DeleteLink removes the matching edge if present and returns how many rows
// were removed (0 or 1). Absence is not an error.
func (db *DB) DeleteLink(ctx context.Context, userKey string, fromID, toID int64) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM note_links
		WHERE user_key = ? AND from_note_id = ? AND to_note_id = ?
	`, userKey, fromID, toID)
	if err != nil {
		return 0, fmt.Errorf("store: delete link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: rows affected: %w", err)
	}
	return n, nil
}

// NoteLinks returns the notes this note links to and the notes linking to it
// (its backlinks), each as lightweight link targets.
func (db *DB) NoteLinks(ctx context.Context, userKey string, id int64) (outgoing, incoming []models.LinkedNote, err error) {
	outgoing, err = db.linkedNotes(ctx, userKey, `
		SELECT n.id, n.title, n.updated_at
		FROM note_links l
		JOIN notes n ON n.id = l.to_note_id AND n.user_key = l.user_key
		WHERE l.user_key = ? AND l.from_note_id = ?
		ORDER BY n.id`, id)
	if err != nil {
		return nil, nil, err
	}
	incoming, err = db.linkedNotes(ctx, userKey, `
		SELECT n.id, n.title, n.updated_at
		FROM note_links l
		JOIN notes n ON n.id = l.from_note_id AND n.user_key = l.user_key
		WHERE l.user_key = ? AND l.to_note_id = ?
		ORDER BY n.id`, id)
	if err != nil {
		return nil, nil, err
	}
	return outgoing, incoming, nil
}

func (db *DB) linkedNotes(ctx context.Context, userKey, query string, id int64) ([]models.LinkedNote, error) {
	rows, err := db.conn.QueryContext(ctx, query, userKey, id)
	if err != nil {
		return nil, fmt.Errorf("store: linked notes: %w", err)
	}
	defer rows.Close()

	var out []models.LinkedNote
	for rows.Next() {
		var ln models.LinkedNote
		if err := rows.Scan(&ln.ID, &ln.Title, &ln.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}
