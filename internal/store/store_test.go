package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/store"
	"github.com/starford/othala/internal/testutil"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
)

func TestCreateAndGetNote(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	tag, err := db.CreateTag(ctx, alice, "go")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	created, err := db.CreateNote(ctx, alice, "First note", "body text", []int64{tag.ID})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if created.ID < 1 {
		t.Fatalf("id = %d, want >= 1", created.ID)
	}
	if created.Title != "First note" || created.Content != "body text" {
		t.Errorf("note = %+v", created)
	}
	if len(created.Tags) != 1 || created.Tags[0].Name != "go" {
		t.Errorf("tags = %+v, want [go]", created.Tags)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}

	got, err := db.GetNote(ctx, alice, created.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Title != created.Title {
		t.Errorf("title = %q", got.Title)
	}
}

func TestCreateNote_ForeignTagRejected(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	bobTag, err := db.CreateTag(ctx, bob, "private")
	if err != nil {
		t.Fatal(err)
	}

	_, err = db.CreateNote(ctx, alice, "sneaky", "", []int64{bobTag.ID})
	if !errors.Is(err, apperr.ErrInvalidReference) {
		t.Fatalf("err = %v, want ErrInvalidReference", err)
	}

	// Nothing should have been persisted.
	notes, err := db.ListNotes(ctx, alice, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 0 {
		t.Errorf("notes = %d, want 0 after failed create", len(notes))
	}
}

func TestCreateNote_DuplicateTagIDsCollapse(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	tag, err := db.CreateTag(ctx, alice, "dup")
	if err != nil {
		t.Fatal(err)
	}
	note, err := db.CreateNote(ctx, alice, "n", "", []int64{tag.ID, tag.ID, tag.ID})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if len(note.Tags) != 1 {
		t.Errorf("tags = %d, want 1", len(note.Tags))
	}
}

func TestGetNote_NotFoundAndScoping(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	note, err := db.CreateNote(ctx, alice, "mine", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.GetNote(ctx, alice, note.ID+999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing id err = %v, want ErrNotFound", err)
	}
	// Another user's key must not see the note.
	if _, err := db.GetNote(ctx, bob, note.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-user err = %v, want ErrNotFound", err)
	}
}

func TestListNotes_FilterAndOrder(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	tag, err := db.CreateTag(ctx, alice, "work")
	if err != nil {
		t.Fatal(err)
	}

	first, err := db.CreateNote(ctx, alice, "Grocery list", "milk and eggs", nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.CreateNote(ctx, alice, "Meeting notes", "quarterly planning", []int64{tag.ID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateNote(ctx, bob, "Meeting notes", "bob's copy", nil); err != nil {
		t.Fatal(err)
	}

	// Default listing: newest updated first, scoped to alice.
	notes, err := db.ListNotes(ctx, alice, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	if notes[0].ID != second.ID || notes[1].ID != first.ID {
		t.Errorf("order = [%d %d], want [%d %d]", notes[0].ID, notes[1].ID, second.ID, first.ID)
	}

	// Substring filter matches title or content.
	notes, err = db.ListNotes(ctx, alice, "milk", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].ID != first.ID {
		t.Errorf("query filter = %+v", notes)
	}

	// Tag filter.
	notes, err = db.ListNotes(ctx, alice, "", tag.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].ID != second.ID {
		t.Errorf("tag filter = %+v", notes)
	}

	// Both filters combined, no match.
	notes, err = db.ListNotes(ctx, alice, "milk", tag.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 0 {
		t.Errorf("combined filter = %d, want 0", len(notes))
	}
}

func TestListNotes_QueryWildcardsMatchLiterally(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	if _, err := db.CreateNote(ctx, alice, "discount 50x off", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateNote(ctx, alice, "abc", "", nil); err != nil {
		t.Fatal(err)
	}
	literal, err := db.CreateNote(ctx, alice, "discount 50% off", "underscore_here", nil)
	if err != nil {
		t.Fatal(err)
	}

	// % and _ in the search term are literal characters, not LIKE wildcards.
	notes, err := db.ListNotes(ctx, alice, "50%", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].ID != literal.ID {
		t.Errorf("%%-query = %+v, want only the literal match", notes)
	}

	notes, err = db.ListNotes(ctx, alice, "a_c", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 0 {
		t.Errorf("_-query matched %+v, want none", notes)
	}

	notes, err = db.ListNotes(ctx, alice, "score_h", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].ID != literal.ID {
		t.Errorf("literal underscore query = %+v", notes)
	}
}

func TestUpdateNote_PartialFields(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	note, err := db.CreateNote(ctx, alice, "before", "old content", nil)
	if err != nil {
		t.Fatal(err)
	}

	content := "new content"
	updated, err := db.UpdateNote(ctx, alice, note.ID, store.NotePatch{Content: &content})
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.Title != "before" {
		t.Errorf("title = %q, want unchanged", updated.Title)
	}
	if updated.Content != "new content" {
		t.Errorf("content = %q", updated.Content)
	}
	if updated.UpdatedAt.Before(note.UpdatedAt) {
		t.Errorf("updatedAt went backwards: %v < %v", updated.UpdatedAt, note.UpdatedAt)
	}
}

func TestUpdateNote_TagTriState(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	t1, err := db.CreateTag(ctx, alice, "one")
	if err != nil {
		t.Fatal(err)
	}
	t2, err := db.CreateTag(ctx, alice, "two")
	if err != nil {
		t.Fatal(err)
	}

	note, err := db.CreateNote(ctx, alice, "n", "", []int64{t1.ID})
	if err != nil {
		t.Fatal(err)
	}

	// Nil TagIDs leaves associations untouched.
	title := "renamed"
	updated, err := db.UpdateNote(ctx, alice, note.ID, store.NotePatch{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Tags) != 1 || updated.Tags[0].ID != t1.ID {
		t.Errorf("tags after nil patch = %+v, want [one]", updated.Tags)
	}
	afterRename := updated.UpdatedAt

	// Non-empty replaces the whole set.
	replace := []int64{t2.ID}
	updated, err = db.UpdateNote(ctx, alice, note.ID, store.NotePatch{TagIDs: &replace})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Tags) != 1 || updated.Tags[0].ID != t2.ID {
		t.Errorf("tags after replace = %+v, want [two]", updated.Tags)
	}

	// Tags-only update must not bump updatedAt.
	if !updated.UpdatedAt.Equal(afterRename) {
		t.Errorf("updatedAt changed on tags-only update: %v != %v", updated.UpdatedAt, afterRename)
	}

	// Empty clears all associations.
	clear := []int64{}
	updated, err = db.UpdateNote(ctx, alice, note.ID, store.NotePatch{TagIDs: &clear})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Tags) != 0 {
		t.Errorf("tags after clear = %+v, want none", updated.Tags)
	}
}

func TestUpdateNote_NotFoundAndForeignTag(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	title := "x"
	if _, err := db.UpdateNote(ctx, alice, 42, store.NotePatch{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing note err = %v, want ErrNotFound", err)
	}

	note, err := db.CreateNote(ctx, alice, "n", "original", nil)
	if err != nil {
		t.Fatal(err)
	}
	bobTag, err := db.CreateTag(ctx, bob, "theirs")
	if err != nil {
		t.Fatal(err)
	}

	content := "changed"
	tagIDs := []int64{bobTag.ID}
	_, err = db.UpdateNote(ctx, alice, note.ID, store.NotePatch{Content: &content, TagIDs: &tagIDs})
	if !errors.Is(err, apperr.ErrInvalidReference) {
		t.Fatalf("foreign tag err = %v, want ErrInvalidReference", err)
	}

	// The failed update must not have touched the note.
	got, err := db.GetNote(ctx, alice, note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "original" {
		t.Errorf("content = %q, want original after rollback", got.Content)
	}
}

func TestDeleteNote_CascadesAndIdempotent(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	tag, err := db.CreateTag(ctx, alice, "t")
	if err != nil {
		t.Fatal(err)
	}
	a, err := db.CreateNote(ctx, alice, "a", "", []int64{tag.ID})
	if err != nil {
		t.Fatal(err)
	}
	b, err := db.CreateNote(ctx, alice, "b", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateLink(ctx, alice, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateLink(ctx, alice, b.ID, a.ID); err != nil {
		t.Fatal(err)
	}

	deleted, err := db.DeleteNote(ctx, alice, a.ID)
	if err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if !deleted {
		t.Fatal("deleted = false, want true")
	}

	// Links in both directions are gone.
	outgoing, incoming, err := db.NoteLinks(ctx, alice, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(outgoing) != 0 || len(incoming) != 0 {
		t.Errorf("links after cascade: out=%d in=%d, want 0/0", len(outgoing), len(incoming))
	}

	// The tag itself survives.
	tags, err := db.ListTags(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 {
		t.Errorf("tags = %d, want 1", len(tags))
	}

	// Second delete reports nothing removed.
	deleted, err = db.DeleteNote(ctx, alice, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if deleted {
		t.Error("second delete = true, want false")
	}
}

func TestCreateTag_DuplicateScopedPerUser(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	if _, err := db.CreateTag(ctx, alice, "shared"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateTag(ctx, alice, "shared"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate err = %v, want ErrConflict", err)
	}
	// Same name under a different key is fine.
	if _, err := db.CreateTag(ctx, bob, "shared"); err != nil {
		t.Errorf("other user same name: %v", err)
	}
}

func TestFindTagByName(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	created, err := db.CreateTag(ctx, alice, "exact")
	if err != nil {
		t.Fatal(err)
	}
	found, err := db.FindTagByName(ctx, alice, "exact")
	if err != nil {
		t.Fatalf("FindTagByName: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("id = %d, want %d", found.ID, created.ID)
	}
	if _, err := db.FindTagByName(ctx, alice, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
	if _, err := db.FindTagByName(ctx, bob, "exact"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-user err = %v, want ErrNotFound", err)
	}
}

func TestLinks_CreateDeleteAndDirections(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	a, err := db.CreateNote(ctx, alice, "a", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := db.CreateNote(ctx, alice, "b", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	link, err := db.CreateLink(ctx, alice, a.ID, b.ID)
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if link.FromID != a.ID || link.ToID != b.ID {
		t.Errorf("link = %+v", link)
	}

	// Duplicate edge conflicts; the reverse direction is a distinct edge.
	if _, err := db.CreateLink(ctx, alice, a.ID, b.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate err = %v, want ErrConflict", err)
	}
	if _, err := db.CreateLink(ctx, alice, b.ID, a.ID); err != nil {
		t.Errorf("reverse edge: %v", err)
	}

	outgoing, incoming, err := db.NoteLinks(ctx, alice, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(outgoing) != 1 || outgoing[0].ID != b.ID {
		t.Errorf("outgoing = %+v", outgoing)
	}
	if len(incoming) != 1 || incoming[0].ID != b.ID {
		t.Errorf("incoming = %+v", incoming)
	}

	n, err := db.DeleteLink(ctx, alice, a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	n, err = db.DeleteLink(ctx, alice, a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second delete = %d, want 0", n)
	}
}

func TestCreateLink_MissingOrForeignEndpoint(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	mine, err := db.CreateNote(ctx, alice, "mine", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	theirs, err := db.CreateNote(ctx, bob, "theirs", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.CreateLink(ctx, alice, mine.ID, mine.ID+999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing endpoint err = %v, want ErrNotFound", err)
	}
	// A note owned by another key counts as missing.
	if _, err := db.CreateLink(ctx, alice, mine.ID, theirs.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign endpoint err = %v, want ErrNotFound", err)
	}
}

func TestInsights(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	popular, err := db.CreateTag(ctx, alice, "popular")
	if err != nil {
		t.Fatal(err)
	}
	rare, err := db.CreateTag(ctx, alice, "rare")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := db.CreateNote(ctx, alice, "n", "", []int64{popular.ID}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.CreateNote(ctx, alice, "m", "", []int64{rare.ID}); err != nil {
		t.Fatal(err)
	}
	// Another user's activity must not leak into the report.
	if _, err := db.CreateNote(ctx, bob, "bob", "", nil); err != nil {
		t.Fatal(err)
	}

	start := time.Now().UTC().Add(-7 * 24 * time.Hour)
	created, updated, topTags, err := db.Insights(ctx, alice, start)
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if created != 4 {
		t.Errorf("created = %d, want 4", created)
	}
	if updated != 4 {
		t.Errorf("updated = %d, want 4", updated)
	}
	if len(topTags) != 2 {
		t.Fatalf("topTags = %+v, want 2 entries", topTags)
	}
	if topTags[0].TagID != popular.ID || topTags[0].Count != 3 {
		t.Errorf("top tag = %+v, want popular with 3", topTags[0])
	}

	// A window starting in the future counts nothing.
	future := time.Now().UTC().Add(time.Hour)
	created, updated, _, err = db.Insights(ctx, alice, future)
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 || updated != 0 {
		t.Errorf("future window: created=%d updated=%d, want 0/0", created, updated)
	}
}
