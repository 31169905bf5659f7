// Package export writes the data files the static-site generator reads:
//
//	<dir>/students.json        — full roster
//	<dir>/articles.json        — article index (metadata only)
//	<dir>/articles/<slug>.md   — each article, front matter re-emitted
//
// This is the whole contract with the generator. Rendering those files
// into pages is its job, not ours.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/progsite/roster-api/internal/content"
	"github.com/progsite/roster-api/internal/storage"
)

// ErrAlreadyRunning is returned when an export is triggered while a
// previous run (cron or HTTP) is still writing.
var ErrAlreadyRunning = errors.New("export already running")

// Exporter writes generator input files from the current store state.
type Exporter struct {
	store storage.Storage
	dir   string

	mu      sync.Mutex
	running bool
}

// New returns an Exporter targeting dir. The directory is created on
// the first run.
func New(store storage.Storage, dir string) *Exporter {
	return &Exporter{store: store, dir: dir}
}

// Run performs one export pass and returns the relative paths written.
// Concurrent runs are rejected rather than queued — the second caller
// would only rewrite identical files.
func (e *Exporter) Run(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	if err := os.MkdirAll(filepath.Join(e.dir, "articles"), 0o755); err != nil {
		return nil, fmt.Errorf("export: create dir: %w", err)
	}

	var written []string

	entries, err := e.store.GetStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: load roster: %w", err)
	}
	if err := e.writeJSON("students.json", entries); err != nil {
		return nil, err
	}
	written = append(written, "students.json")

	metas, err := e.store.GetArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: load article index: %w", err)
	}
	if err := e.writeJSON("articles.json", metas); err != nil {
		return nil, err
	}
	written = append(written, "articles.json")

	for _, meta := range metas {
		// Ingest already rejects unsafe slugs; re-check here because the
		// slug decides a file name and older rows may predate the check.
		if !content.IsValidSlug(meta.Slug) {
			return nil, fmt.Errorf("export: refusing unsafe article slug %q", meta.Slug)
		}
		a, err := e.store.GetArticleBySlug(ctx, meta.Slug)
		if err != nil {
			return nil, fmt.Errorf("export: load article %q: %w", meta.Slug, err)
		}
		doc, err := content.WriteArticle(a)
		if err != nil {
			return nil, fmt.Errorf("export: render article %q: %w", meta.Slug, err)
		}
		rel := filepath.Join("articles", a.Slug+".md")
		if err := os.WriteFile(filepath.Join(e.dir, rel), doc, 0o644); err != nil {
			return nil, fmt.Errorf("export: write article %q: %w", meta.Slug, err)
		}
		written = append(written, rel)
	}

	slog.Info("export complete",
		slog.Int("students", len(entries)),
		slog.Int("articles", len(metas)),
		slog.String("dir", e.dir),
	)

	return written, nil
}

func (e *Exporter) writeJSON(name string, data any) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("export: encode %s: %w", name, err)
	}
	// Trailing newline keeps the files diff-friendly in the site repo.
	encoded = append(encoded, '\n')
	if err := os.WriteFile(filepath.Join(e.dir, name), encoded, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", name, err)
	}
	return nil
}
