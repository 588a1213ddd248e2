// Package store provides the SQLite persistence layer. Every operation is
// scoped by the caller's user key; rows belonging to other keys are invisible.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_key   TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_user_updated ON notes(user_key, updated_at);

CREATE TABLE IF NOT EXISTS tags (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_key   TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE(user_key, name)
);

CREATE TABLE IF NOT EXISTS note_tags (
	user_key TEXT NOT NULL,
	note_id  INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	tag_id   INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (user_key, note_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(user_key, tag_id);

CREATE TABLE IF NOT EXISTS note_links (
	user_key     TEXT NOT NULL,
	from_note_id INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	to_note_id   INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	created_at   DATETIME NOT NULL,
	PRIMARY KEY (user_key, from_note_id, to_note_id)
);

CREATE INDEX IF NOT EXISTS idx_note_links_to ON note_links(user_key, to_note_id);
`

// DB wraps a sql.DB with knowledge-base operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// now returns the current instant normalised to UTC. SQLite compares the
// stored DATETIME text lexicographically, so all timestamps must share one
// zone for window queries to be ordered correctly.
func now() time.Time {
	return time.Now().UTC()
}

// asConflict translates a SQLite uniqueness violation into apperr.ErrConflict.
// The constraint is the final arbiter: two racing inserts can both pass any
// application-side pre-check, but only one survives the constraint.
func asConflict(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return apperr.ErrConflict
		}
	}
	return err
}

// ownedTagIDs reports whether every id in tagIDs resolves to a tag owned by
// userKey. Runs inside the caller's transaction.
func ownedTagIDs(ctx context.Context, tx *sql.Tx, userKey string, tagIDs []int64) (bool, error) {
	if len(tagIDs) == 0 {
		return true, nil
	}
	seen := make(map[int64]struct{}, len(tagIDs))
	args := make([]any, 0, len(tagIDs)+1)
	args = append(args, userKey)
	for _, id := range tagIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
	}
	q := `SELECT COUNT(*) FROM tags WHERE user_key = ? AND id IN (?` +
		repeat(",?", len(seen)-1) + `)`
	var n int
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("store: count owned tags: %w", err)
	}
	return n == len(seen), nil
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

// tagsForNotes loads the tag associations for the given note ids and returns
// them keyed by note id. Tags within a note follow tag-id order.
func (db *DB) tagsForNotes(ctx context.Context, userKey string, noteIDs []int64) (map[int64][]models.Tag, error) {
	out := make(map[int64][]models.Tag, len(noteIDs))
	if len(noteIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(noteIDs)+1)
	args = append(args, userKey)
	for _, id := range noteIDs {
		args = append(args, id)
	}
	q := `
		SELECT nt.note_id, t.id, t.name, t.created_at
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id AND t.user_key = nt.user_key
		WHERE nt.user_key = ? AND nt.note_id IN (?` + repeat(",?", len(noteIDs)-1) + `)
		ORDER BY t.id`
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: tags for notes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var noteID int64
		var t models.Tag
		if err := rows.Scan(&noteID, &t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		out[noteID] = append(out[noteID], t)
	}
	return out, rows.Err()
}
