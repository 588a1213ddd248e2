// Package kbservice implements the knowledge-base rules on top of the store:
// ownership scoping, tag-reference validation, self-link rejection, and the
// tri-state tag-replacement semantics of note updates.
package kbservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/store"
)

// Service coordinates store operations. Every method takes the caller's user
// key explicitly; there is no ambient identity.
type Service struct {
	db store.Store
}

// NewService creates a new knowledge-base service.
func NewService(db store.Store) *Service {
	return &Service{db: db}
}

// CreateNoteInput is the payload for CreateNote. An empty TagIDs slice means
// no associations.
type CreateNoteInput struct {
	Title   string
	Content string
	TagIDs  []int64
}

// UpdateNoteInput is a partial note update. Nil Title/Content leave the field
// unchanged. TagIDs is tri-state: nil leaves associations untouched, empty
// clears them, non-empty replaces them.
type UpdateNoteInput struct {
	Title   *string
	Content *string
	TagIDs  *[]int64
}

// CreateNote validates the title and tag ownership, then persists the note
// and its associations atomically.
func (s *Service) CreateNote(ctx context.Context, userKey string, in CreateNoteInput) (*models.Note, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrInvalidReference)
	}
	n, err := s.db.CreateNote(ctx, userKey, in.Title, in.Content, in.TagIDs)
	if err != nil {
		return nil, err
	}
	n.Tags = nonNilSlice(n.Tags)
	return n, nil
}

// ListNotes returns the caller's notes, most recently updated first,
// optionally filtered by substring and/or tag.
func (s *Service) ListNotes(ctx context.Context, userKey, query string, tagID int64) ([]models.Note, error) {
	notes, err := s.db.ListNotes(ctx, userKey, strings.TrimSpace(query), tagID)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		notes[i].Tags = nonNilSlice(notes[i].Tags)
	}
	return nonNilSlice(notes), nil
}

// GetNote returns one note with tags and both link directions.
func (s *Service) GetNote(ctx context.Context, userKey string, id int64) (*models.NoteDetail, error) {
	n, err := s.db.GetNote(ctx, userKey, id)
	if err != nil {
		return nil, err
	}
	outgoing, incoming, err := s.db.NoteLinks(ctx, userKey, id)
	if err != nil {
		return nil, err
	}
	n.Tags = nonNilSlice(n.Tags)
	return &models.NoteDetail{
		Note:          *n,
		OutgoingLinks: nonNilSlice(outgoing),
		IncomingLinks: nonNilSlice(incoming),
	}, nil
}

// UpdateNote applies a partial update. A provided title must be non-empty.
func (s *Service) UpdateNote(ctx context.Context, userKey string, id int64, in UpdateNoteInput) (*models.Note, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", apperr.ErrInvalidReference)
	}
	n, err := s.db.UpdateNote(ctx, userKey, id, store.NotePatch{
		Title:   in.Title,
		Content: in.Content,
		TagIDs:  in.TagIDs,
	})
	if err != nil {
		return nil, err
	}
	n.Tags = nonNilSlice(n.Tags)
	return n, nil
}

// DeleteNote removes an owned note. Reports whether a row was removed;
// deleting an already-gone note is not an error.
func (s *Service) DeleteNote(ctx context.Context, userKey string, id int64) (bool, error) {
	return s.db.DeleteNote(ctx, userKey, id)
}

// ListTags returns the caller's tags, newest first.
func (s *Service) ListTags(ctx context.Context, userKey string) ([]models.Tag, error) {
	tags, err := s.db.ListTags(ctx, userKey)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(tags), nil
}

// CreateTag trims the name, rejects empty, pre-checks for a duplicate, and
// inserts. The storage-level UNIQUE constraint stays the final arbiter for
// two concurrent creates racing past the pre-check.
func (s *Service) CreateTag(ctx context.Context, userKey, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tag name is required", apperr.ErrInvalidReference)
	}
	exists, err := s.db.TagExists(ctx, userKey, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrConflict
	}
	return s.db.CreateTag(ctx, userKey, name)
}

// EnsureTag returns the caller's tag with this name, creating it if absent.
// A concurrent create racing the lookup resolves through the Conflict branch.
func (s *Service) EnsureTag(ctx context.Context, userKey, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tag name is required", apperr.ErrInvalidReference)
	}
	tag, err := s.db.CreateTag(ctx, userKey, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, apperr.ErrConflict) {
		return nil, err
	}
	return s.db.FindTagByName(ctx, userKey, name)
}

// CreateLink adds a directed edge. Self-links are rejected before any
// storage lookup, so they fail even when neither note exists.
func (s *Service) CreateLink(ctx context.Context, userKey string, fromID, toID int64) (*models.Link, error) {
	if fromID == toID {
		return nil, apperr.ErrSelfLink
	}
	return s.db.CreateLink(ctx, userKey, fromID, toID)
}

// DeleteLink removes an edge and returns how many rows went away (0 or 1).
func (s *Service) DeleteLink(ctx context.Context, userKey string, fromID, toID int64) (int64, error) {
	return s.db.DeleteLink(ctx, userKey, fromID, toID)
}

// Insights computes the usage report for a trailing window of rangeDays,
// which must be 7 or 30.
func (s *Service) Insights(ctx context.Context, userKey string, rangeDays int) (*models.Insights, error) {
	if rangeDays != 7 && rangeDays != 30 {
		return nil, fmt.Errorf("%w: range must be 7 or 30", apperr.ErrInvalidReference)
	}
	start := time.Now().UTC().Add(-time.Duration(rangeDays) * 24 * time.Hour)
	created, updated, topTags, err := s.db.Insights(ctx, userKey, start)
	if err != nil {
		return nil, err
	}
	return &models.Insights{
		RangeDays:    rangeDays,
		Start:        start,
		CreatedCount: created,
		UpdatedCount: updated,
		TopTags:      nonNilSlice(topTags),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
