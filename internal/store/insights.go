package store

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/othala/internal/models"
)

// topTagLimit caps the top-tags portion of the insights report.
const topTagLimit = 10

// Insights computes the usage report: how many notes were created and updated
// since start, plus the all-time top tags by association count. Ties between
// equal counts fall back to storage order and are not deterministic.
func (db *DB) Insights(ctx context.Context, userKey string, start time.Time) (created, updated int64, topTags []models.TagCount, err error) {
	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notes WHERE user_key = ? AND created_at >= ?
	`, userKey, start.UTC()).Scan(&created)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("store: created count: %w", err)
	}

	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notes WHERE user_key = ? AND updated_at >= ?
	`, userKey, start.UTC()).Scan(&updated)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("store: updated count: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(*) AS uses
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id AND t.user_key = nt.user_key
		WHERE nt.user_key = ?
		GROUP BY t.id, t.name
		ORDER BY uses DESC
		LIMIT ?
	`, userKey, topTagLimit)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("store: top tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.TagID, &tc.Name, &tc.Count); err != nil {
			return 0, 0, nil, err
		}
		topTags = append(topTags, tc)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, nil, err
	}
	return created, updated, topTags, nil
}
