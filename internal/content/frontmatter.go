// Package content handles the on-disk shape of tutorial articles:
// a YAML front-matter block between `---` fences, followed by a raw
// Markdown body. The body is never interpreted here beyond byte-level
// normalization — rendering belongs to the site generator.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/progsite/roster-api/internal/types"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("content: missing front matter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("content: malformed front matter")
	// ErrInvalidSlug indicates a front-matter slug that is not a plain
	// hyphenated token. Slugs become file names under the export
	// directory, so anything else is rejected at ingest.
	ErrInvalidSlug = errors.New("content: invalid slug")
)

// frontMatter is the YAML envelope of an article document.
// Date accepts either a full RFC 3339 timestamp or a bare yyyy-mm-dd.
type frontMatter struct {
	Slug    string   `yaml:"slug,omitempty"`
	Title   string   `yaml:"title"`
	Author  string   `yaml:"author,omitempty"`
	Date    string   `yaml:"date,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
	Summary string   `yaml:"summary,omitempty"`
}

// ParseArticle extracts front matter and body from a raw Markdown
// document. The slug falls back to a slugified title when the front
// matter does not set one.
func ParseArticle(raw []byte) (types.Article, error) {
	if len(raw) == 0 {
		return types.Article{}, ErrMissingFrontMatter
	}
	normalized := normalizeNewlines(raw)
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return types.Article{}, ErrMissingFrontMatter
	}

	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return types.Article{}, ErrMalformedFrontMatter
	}

	var fm frontMatter
	if err := yaml.Unmarshal(parts[0], &fm); err != nil {
		return types.Article{}, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}

	date, err := parseDate(fm.Date)
	if err != nil {
		return types.Article{}, fmt.Errorf("%w: date: %v", ErrMalformedFrontMatter, err)
	}

	slug := fm.Slug
	if slug == "" {
		slug = Slugify(fm.Title)
	} else if !IsValidSlug(slug) {
		return types.Article{}, fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}

	return types.Article{
		Slug:    slug,
		Title:   fm.Title,
		Author:  fm.Author,
		Date:    date,
		Tags:    fm.Tags,
		Summary: fm.Summary,
		Body:    strings.TrimLeft(string(parts[1]), "\n"),
	}, nil
}

// WriteArticle renders an article back into fenced-front-matter form,
// the shape the site generator ingests.
func WriteArticle(a types.Article) ([]byte, error) {
	if a.Slug == "" {
		return nil, fmt.Errorf("content: article has no slug")
	}

	fm := frontMatter{
		Slug:    a.Slug,
		Title:   a.Title,
		Author:  a.Author,
		Tags:    a.Tags,
		Summary: a.Summary,
	}
	if !a.Date.IsZero() {
		fm.Date = a.Date.Format("2006-01-02")
	}

	meta, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("content: encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(meta, "\n"))
	buf.WriteString("\n---\n\n")
	buf.WriteString(a.Body)
	if !strings.HasSuffix(a.Body, "\n") {
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// Slugify lowercases a title and collapses every non-alphanumeric run
// into a single hyphen: "Using ADOL-C on a GPU" → "using-adol-c-on-a-gpu".
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// IsValidSlug reports whether s is something Slugify could have
// produced: lowercase alphanumerics separated by single hyphens.
// In particular it admits no path separators or dots.
func IsValidSlug(s string) bool {
	return s != "" && s == Slugify(s)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func normalizeNewlines(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
}
