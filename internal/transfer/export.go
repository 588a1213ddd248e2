// Package transfer moves notes between the store and a directory of Markdown
// files: export writes one frontmattered file per note plus a checksum
// manifest, import reads such files back and rebuilds tags and links.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/kbservice"
	"github.com/starford/othala/internal/parser"
	"github.com/starford/othala/internal/storage"
)

const manifestName = "manifest.yaml"

// Manifest describes one export run.
type Manifest struct {
	NoteCount int             `yaml:"note_count"`
	Files     []ManifestEntry `yaml:"files"`
}

// ManifestEntry pairs an exported file with its content checksum.
type ManifestEntry struct {
	Name     string `yaml:"name"`
	Checksum string `yaml:"checksum"`
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slug derives a file-name-safe fragment from a note title.
func slug(title string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "note"
	}
	if len(s) > 48 {
		s = s[:48]
	}
	return s
}

// Export writes every note owned by userKey into dir as Markdown files with
// YAML frontmatter (title, tags, timestamps, outgoing link ids), then a
// manifest with SHA-256 checksums. Returns the number of notes written.
func Export(ctx context.Context, svc *kbservice.Service, fsys *storage.FS, userKey string, logger *slog.Logger) (int, error) {
	notes, err := svc.ListNotes(ctx, userKey, "", 0)
	if err != nil {
		return 0, fmt.Errorf("transfer: list notes: %w", err)
	}

	manifest := Manifest{NoteCount: len(notes)}
	for _, n := range notes {
		detail, err := svc.GetNote(ctx, userKey, n.ID)
		if err != nil {
			return 0, fmt.Errorf("transfer: load note %d: %w", n.ID, err)
		}

		fm := parser.Frontmatter{
			Title:   detail.Title,
			Created: detail.CreatedAt,
			Updated: detail.UpdatedAt,
		}
		for _, t := range detail.Tags {
			fm.Tags = append(fm.Tags, t.Name)
		}
		for _, ln := range detail.OutgoingLinks {
			fm.Links = append(fm.Links, ln.ID)
		}

		data, err := parser.Render(fm, detail.Content)
		if err != nil {
			return 0, err
		}

		name := fmt.Sprintf("%d-%s.md", detail.ID, slug(detail.Title))
		if err := fsys.Write(name, data); err != nil {
			return 0, err
		}
		manifest.Files = append(manifest.Files, ManifestEntry{
			Name:     name,
			Checksum: checksum.Sum(data),
		})
		logger.Debug("export: wrote note", slog.Int64("id", detail.ID), slog.String("file", name))
	}

	raw, err := yaml.Marshal(manifest)
	if err != nil {
		return 0, fmt.Errorf("transfer: encode manifest: %w", err)
	}
	if err := fsys.Write(manifestName, raw); err != nil {
		return 0, err
	}

	logger.Info("export: done", slog.Int("notes", len(notes)))
	return len(notes), nil
}
