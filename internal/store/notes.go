package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// NotePatch describes a partial note update. Nil fields are left unchanged.
// TagIDs is tri-state: nil leaves associations untouched, an empty slice
// clears them, a non-empty slice replaces them with the validated set.
type NotePatch struct {
	Title   *string
	Content *string
	TagIDs  *[]int64
}

// CreateNote inserts a note and its tag associations as one transaction.
// Every tag id must belong to userKey or the whole operation fails with
// apperr.ErrInvalidReference and nothing is persisted.
func (db *DB) CreateNote(ctx context.Context, userKey, title, content string, tagIDs []int64) (*models.Note, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	ok, err := ownedTagIDs(ctx, tx, userKey, tagIDs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrInvalidReference
	}

	ts := now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO notes (user_key, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, userKey, title, content, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("store: insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: note id: %w", err)
	}

	if err := insertNoteTags(ctx, tx, userKey, id, tagIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.noteByID(ctx, userKey, id)
}

// insertNoteTags bulk-inserts join rows. OR IGNORE keeps duplicate ids in
// the input harmless; the join primary key blocks them anyway.
func insertNoteTags(ctx context.Context, tx *sql.Tx, userKey string, noteID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO note_tags (user_key, note_id, tag_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare note_tags insert: %w", err)
	}
	defer stmt.Close()
	for _, tagID := range tagIDs {
		if _, err := stmt.ExecContext(ctx, userKey, noteID, tagID); err != nil {
			return fmt.Errorf("store: insert note_tag: %w", err)
		}
	}
	return nil
}

// GetNote returns one owned note with its tags, or apperr.ErrNotFound.
func (db *DB) GetNote(ctx context.Context, userKey string, id int64) (*models.Note, error) {
	return db.noteByID(ctx, userKey, id)
}

func (db *DB) noteByID(ctx context.Context, userKey string, id int64) (*models.Note, error) {
	var n models.Note
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, title, content, created_at, updated_at
		FROM notes WHERE user_key = ? AND id = ?
	`, userKey, id).Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	byNote, err := db.tagsForNotes(ctx, userKey, []int64{n.ID})
	if err != nil {
		return nil, err
	}
	n.Tags = byNote[n.ID]
	return &n, nil
}

// ListNotes returns the caller's notes, newest-updated first. query filters by
// case-insensitive substring on title or content; tagID (when > 0) restricts
// to notes carrying that tag.
func (db *DB) ListNotes(ctx context.Context, userKey, query string, tagID int64) ([]models.Note, error) {
	q := `SELECT id, title, content, created_at, updated_at FROM notes WHERE user_key = ?`
	args := []any{userKey}
	if query != "" {
		q += ` AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`
		like := "%" + escapeLike(query) + "%"
		args = append(args, like, like)
	}
	if tagID > 0 {
		q += ` AND id IN (SELECT note_id FROM note_tags WHERE user_key = ? AND tag_id = ?)`
		args = append(args, userKey, tagID)
	}
	q += ` ORDER BY updated_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	var ids []int64
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
		ids = append(ids, n.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byNote, err := db.tagsForNotes(ctx, userKey, ids)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		notes[i].Tags = byNote[notes[i].ID]
	}
	return notes, nil
}

// escapeLike neutralises LIKE wildcards so a search term matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// UpdateNote applies a partial update and, when patch.TagIDs is set, replaces
// the note's tag associations, all within one transaction. updated_at is
// bumped only when title or content actually changes.
func (db *DB) UpdateNote(ctx context.Context, userKey string, id int64, patch NotePatch) (*models.Note, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM notes WHERE user_key = ? AND id = ?`, userKey, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find note: %w", err)
	}

	if patch.TagIDs != nil {
		ok, err := ownedTagIDs(ctx, tx, userKey, *patch.TagIDs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.ErrInvalidReference
		}
	}

	if patch.Title != nil || patch.Content != nil {
		q := `UPDATE notes SET updated_at = ?`
		args := []any{now()}
		if patch.Title != nil {
			q += `, title = ?`
			args = append(args, *patch.Title)
		}
		if patch.Content != nil {
			q += `, content = ?`
			args = append(args, *patch.Content)
		}
		q += ` WHERE user_key = ? AND id = ?`
		args = append(args, userKey, id)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return nil, fmt.Errorf("store: update note: %w", err)
		}
	}

	if patch.TagIDs != nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM note_tags WHERE user_key = ? AND note_id = ?`, userKey, id); err != nil {
			return nil, fmt.Errorf("store: clear note_tags: %w", err)
		}
		if err := insertNoteTags(ctx, tx, userKey, id, *patch.TagIDs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.noteByID(ctx, userKey, id)
}

// DeleteNote removes an owned note. Foreign keys cascade the deletion to its
// tag associations and to links in both directions. Reports whether a row
// was removed; absence is not an error.
func (db *DB) DeleteNote(ctx context.Context, userKey string, id int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM notes WHERE user_key = ? AND id = ?`, userKey, id)
	if err != nil {
		return false, fmt.Errorf("store: delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: rows affected: %w", err)
	}
	return n > 0, nil
}
