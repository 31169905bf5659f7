// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, storage, lint, and export can all import types without
// depending on each other.
package types

import (
	"strings"
	"time"
)

// StudentEntry is one roster record: a program participant and their
// project summary. Fields mirror the site's content schema — mostly
// free text and URLs.
//
// Struct tags:
//
//  1. json:"..."  — controls how the field appears when encoded to JSON
//     (lowercase names match what the site generator expects to read).
//
//  2. validate:"..." — rules checked by the go-playground/validator
//     package. "required" means the field must be non-zero / non-empty.
type StudentEntry struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"          validate:"required"`
	Photo        string   `json:"photo,omitempty"`
	ProjectTitle string   `json:"project_title" validate:"required"`
	Email        string   `json:"email"         validate:"required,email"`
	Education    string   `json:"education,omitempty"`
	Description  string   `json:"description,omitempty"`
	ProposalURL  string   `json:"proposal_url"  validate:"required,http_url"`
	Mentors      []string `json:"mentors,omitempty"`

	// Past is present only for returning participants. Excluded from the
	// parent's validation pass (validator would recurse into a non-nil
	// pointer); callers validate it separately so findings can point at
	// the past block.
	Past *PastParticipation `json:"past,omitempty" validate:"-"`
}

// PastParticipation describes a prior-year project of the same student.
// When present at all it must identify the project and its proposal.
type PastParticipation struct {
	ProjectTitle string   `json:"project_title" validate:"required"`
	Description  string   `json:"description,omitempty"`
	ProposalURL  string   `json:"proposal_url"  validate:"required,http_url"`
	Mentors      []string `json:"mentors,omitempty"`
}

// Article is a tutorial document: YAML front matter plus a raw Markdown
// body. The body is stored verbatim — embedded sample code included —
// and is never rendered by this service.
type Article struct {
	ID      int64     `json:"id"`
	Slug    string    `json:"slug"  validate:"required"`
	Title   string    `json:"title" validate:"required"`
	Author  string    `json:"author,omitempty"`
	Date    time.Time `json:"date,omitempty"`
	Tags    []string  `json:"tags,omitempty"`
	Summary string    `json:"summary,omitempty"`
	Body    string    `json:"body,omitempty"`
}

// Meta returns a copy of the article without its body, for list
// responses and the generator's index file.
func (a Article) Meta() Article {
	a.Body = ""
	return a
}

// JoinNames folds a mentor list into the single text column the roster
// schema uses. SplitNames is its inverse; both trim whitespace so the
// codec survives hand-edited data.
func JoinNames(names []string) string {
	trimmed := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			trimmed = append(trimmed, n)
		}
	}
	return strings.Join(trimmed, ", ")
}

// SplitNames parses a joined mentor column back into a list.
// Returns nil for an empty column so JSON omits the field.
func SplitNames(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
