package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/kbservice"
	"github.com/starford/othala/internal/parser"
	"github.com/starford/othala/internal/storage"
)

// Import reads every Markdown file in dir and creates the corresponding
// notes and tags under userKey. After all notes exist, [[wikilinks]] are
// resolved by title into directed links; self-links, duplicates, and targets
// that never got imported are skipped. Returns the number of notes created.
func Import(ctx context.Context, svc *kbservice.Service, fsys *storage.FS, userKey string, logger *slog.Logger) (int, error) {
	metas, err := fsys.List()
	if err != nil {
		return 0, err
	}

	type pending struct {
		id        int64
		wikilinks []string
	}

	idByTitle := make(map[string]int64)
	var imported []pending

	for _, m := range metas {
		data, err := fsys.Read(m.Name)
		if err != nil {
			return 0, err
		}
		note, err := parser.Parse(data)
		if err != nil {
			logger.Warn("import: parse failed", slog.String("file", m.Name), slog.String("error", err.Error()))
			continue
		}

		title := strings.TrimSpace(note.Frontmatter.Title)
		if title == "" {
			// Last resort: the file name stem.
			title = strings.TrimSuffix(m.Name, ".md")
		}

		var tagIDs []int64
		for _, name := range note.Frontmatter.Tags {
			tag, err := svc.EnsureTag(ctx, userKey, name)
			if err != nil {
				if errors.Is(err, apperr.ErrInvalidReference) {
					continue // blank tag name in the file
				}
				return 0, fmt.Errorf("transfer: ensure tag %q: %w", name, err)
			}
			tagIDs = append(tagIDs, tag.ID)
		}

		created, err := svc.CreateNote(ctx, userKey, kbservice.CreateNoteInput{
			Title:   title,
			Content: note.Body,
			TagIDs:  tagIDs,
		})
		if err != nil {
			return 0, fmt.Errorf("transfer: create note from %s: %w", m.Name, err)
		}

		// First occurrence of a title wins for wikilink resolution.
		if _, ok := idByTitle[title]; !ok {
			idByTitle[title] = created.ID
		}
		imported = append(imported, pending{id: created.ID, wikilinks: note.WikiLinks})
		logger.Debug("import: created note", slog.String("file", m.Name), slog.Int64("id", created.ID))
	}

	linked := 0
	for _, p := range imported {
		for _, target := range p.wikilinks {
			toID, ok := idByTitle[target]
			if !ok {
				continue
			}
			if _, err := svc.CreateLink(ctx, userKey, p.id, toID); err != nil {
				if errors.Is(err, apperr.ErrSelfLink) ||
					errors.Is(err, apperr.ErrConflict) ||
					errors.Is(err, apperr.ErrNotFound) {
					continue
				}
				return 0, fmt.Errorf("transfer: link %d -> %d: %w", p.id, toID, err)
			}
			linked++
		}
	}

	logger.Info("import: done", slog.Int("notes", len(imported)), slog.Int("links", linked))
	return len(imported), nil
}
