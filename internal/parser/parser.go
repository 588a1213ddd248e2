// Package parser reads and writes the Markdown interchange format used by
// export and import: YAML frontmatter (title, tags, timestamps) above a plain
// Markdown body that may reference other notes with [[wikilinks]].
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Frontmatter is the YAML header of an exported note.
type Frontmatter struct {
	Title   string    `yaml:"title"`
	Tags    []string  `yaml:"tags,omitempty"`
	Created time.Time `yaml:"created,omitempty"`
	Updated time.Time `yaml:"updated,omitempty"`
	// Links holds the note ids of outgoing links at export time.
	Links []int64 `yaml:"links,omitempty"`
}

// Note holds the output of parsing one Markdown file.
type Note struct {
	Frontmatter Frontmatter
	Body        string
	// WikiLinks are the deduplicated [[wikilink]] targets found in the body,
	// resolved against note titles on import.
	WikiLinks []string
}

// Parse extracts frontmatter, body, and wikilinks from raw Markdown bytes.
// A file without frontmatter is all body; the title then falls back to the
// first H1 heading.
func Parse(data []byte) (*Note, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	if fm.Title == "" {
		fm.Title = firstHeading(body)
	}
	return &Note{
		Frontmatter: fm,
		Body:        body,
		WikiLinks:   extractLinks(body),
	}, nil
}

// Render produces the Markdown file for one note: frontmatter fenced by ---
// lines, then the body.
func Render(fm Frontmatter, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: close encoder: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (Frontmatter, string, error) {
	const delim = "---"
	var fm Frontmatter

	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter; treat everything as body.
		return fm, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML; fall back to body only.
		return Frontmatter{}, string(data), nil
	}
	return fm, body, nil
}

// extractLinks returns deduplicated wikilink targets, normalising aliases.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		raw := m[1]
		// Handle aliases: [[Target|Alias]] → Target.
		target := raw
		if i := strings.Index(raw, "|"); i >= 0 {
			target = raw[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// firstHeading returns the first H1 heading of the body, or empty string.
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
