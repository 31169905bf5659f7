// Package ops exposes the content operations that act on the whole
// corpus at once: linting, link checking, and export. Same factory
// pattern as the resource handlers.
package ops

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/progsite/roster-api/internal/export"
	"github.com/progsite/roster-api/internal/linkcheck"
	"github.com/progsite/roster-api/internal/lint"
	"github.com/progsite/roster-api/internal/storage"
	"github.com/progsite/roster-api/internal/types"
	"github.com/progsite/roster-api/internal/utils/response"
)

// ─────────────────────────────────────────────────────────────────────────────
// Lint handles GET /api/lint
// Runs every lint rule over the roster and the articles.
//
// Success response (200 OK):
//
//	{ "checked": 12, "errors": 1, "warnings": 2, "issues": [ ... ] }
//
// A report full of issues is still a 200 — lint findings describe the
// content, not the request.
// ─────────────────────────────────────────────────────────────────────────────
func Lint(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("running content lint")

		entries, err := store.GetStudents(r.Context())
		if err != nil {
			slog.Error("lint: loading roster failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		metas, err := store.GetArticles(r.Context())
		if err != nil {
			slog.Error("lint: loading articles failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		// Fence-balance checks need bodies, which the index omits.
		articles := make([]types.Article, 0, len(metas))
		for _, meta := range metas {
			a, err := store.GetArticleBySlug(r.Context(), meta.Slug)
			if err != nil {
				slog.Error("lint: loading article failed",
					slog.String("slug", meta.Slug), slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
				return
			}
			articles = append(articles, a)
		}

		report := lint.Run(entries, articles)
		slog.Info("content lint finished",
			slog.Int("checked", report.Checked),
			slog.Int("errors", report.Errors),
			slog.Int("warnings", report.Warnings),
		)

		response.WriteJSON(w, http.StatusOK, report)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// LinkCheck handles GET /api/linkcheck
// Fetches every proposal URL (current and prior-year) with the bounded
// checker and reports per-link outcomes.
// ─────────────────────────────────────────────────────────────────────────────
func LinkCheck(store storage.Storage, checker *linkcheck.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("running link check")

		entries, err := store.GetStudents(r.Context())
		if err != nil {
			slog.Error("linkcheck: loading roster failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		results := checker.Check(r.Context(), entries)

		broken := 0
		for _, res := range results {
			if !res.OK {
				broken++
			}
		}
		slog.Info("link check finished",
			slog.Int("links", len(results)), slog.Int("broken", broken))

		response.WriteJSON(w, http.StatusOK, map[string]any{
			"links":   len(results),
			"broken":  broken,
			"results": results,
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Export handles POST /api/export
// Writes the site-generator input files immediately and returns the list
// of files written. 409 when a run is already in progress.
// ─────────────────────────────────────────────────────────────────────────────
func Export(exporter *export.Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("manual export triggered")

		written, err := exporter.Run(r.Context())
		if err != nil {
			if errors.Is(err, export.ErrAlreadyRunning) {
				response.WriteJSON(w, http.StatusConflict, response.GeneralError(err))
				return
			}
			slog.Error("export failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]any{
			"status": response.StatusOK,
			"files":  written,
		})
	}
}
