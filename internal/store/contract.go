package store

import (
	"context"
	"time"

	"github.com/starford/othala/internal/models"
)

// Store defines the persistence operations the service layer depends on.
// Consumers should take this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type Store interface {
	CreateNote(ctx context.Context, userKey, title, content string, tagIDs []int64) (*models.Note, error)
	GetNote(ctx context.Context, userKey string, id int64) (*models.Note, error)
	ListNotes(ctx context.Context, userKey, query string, tagID int64) ([]models.Note, error)
	UpdateNote(ctx context.Context, userKey string, id int64, patch NotePatch) (*models.Note, error)
	DeleteNote(ctx context.Context, userKey string, id int64) (bool, error)

	ListTags(ctx context.Context, userKey string) ([]models.Tag, error)
	CreateTag(ctx context.Context, userKey, name string) (*models.Tag, error)
	TagExists(ctx context.Context, userKey, name string) (bool, error)
	FindTagByName(ctx context.Context, userKey, name string) (*models.Tag, error)

	CreateLink(ctx context.Context, userKey string, fromID, toID int64) (*models.Link, error)
	DeleteLink(ctx context.Context, userKey string, fromID, toID int64) (int64, error)
	NoteLinks(ctx context.Context, userKey string, id int64) (outgoing, incoming []models.LinkedNote, err error)

	Insights(ctx context.Context, userKey string, start time.Time) (created, updated int64, topTags []models.TagCount, err error)

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
