// Package article contains the HTTP handlers for tutorial documents.
// Same closure/factory pattern as the student package; the difference is
// the ingest format — articles arrive as raw Markdown with YAML front
// matter, not JSON.
package article

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/progsite/roster-api/internal/content"
	"github.com/progsite/roster-api/internal/storage"
	"github.com/progsite/roster-api/internal/types"
	"github.com/progsite/roster-api/internal/utils/response"
)

// Article bodies embed whole source listings; a megabyte is generous.
const maxArticleSize = 1 << 20

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/articles
// The request body is the article document itself:
//
//	---
//	title: Using sample code on a GPU
//	author: J. Doe
//	date: 2026-03-01
//	tags: [tutorial, gpu]
//	---
//	Article body in Markdown...
//
// Success response (201 Created):
//
//	{ "id": 1, "slug": "using-sample-code-on-a-gpu" }
//
// Error responses:
//
//	400 Bad Request  — empty body, missing/malformed front matter, no title
//	409 Conflict     — an article with the same slug already exists
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("ingesting an article")

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxArticleSize))
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		if len(raw) == 0 {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}

		parsed, err := content.ParseArticle(raw)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validator.New().Struct(parsed); err != nil {
			validateErrs := err.(validator.ValidationErrors)
			response.WriteJSON(w, http.StatusBadRequest,
				response.ValidationError(validateErrs))
			return
		}

		lastID, err := store.CreateArticle(r.Context(), parsed)
		if err != nil {
			if errors.Is(err, storage.ErrExists) {
				response.WriteJSON(w, http.StatusConflict, response.GeneralError(err))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		slog.Info("article ingested",
			slog.Int64("id", lastID), slog.String("slug", parsed.Slug))
		response.WriteJSON(w, http.StatusCreated, map[string]any{
			"id":   lastID,
			"slug": parsed.Slug,
		})
	}
}

// GetList handles GET /api/articles — metadata only, newest first.
func GetList(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all articles")

		articles, err := store.GetArticles(r.Context())
		if err != nil {
			slog.Error("error getting articles", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		// Bodies are already omitted by the storage layer; Meta keeps the
		// contract explicit even if an implementation returns them.
		metas := make([]types.Article, 0, len(articles))
		for _, a := range articles {
			metas = append(metas, a.Meta())
		}

		response.WriteJSON(w, http.StatusOK, metas)
	}
}

// GetBySlug handles GET /api/articles/{slug} — full document, body included.
func GetBySlug(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		slog.Info("getting an article", slog.String("slug", slug))

		a, err := store.GetArticleBySlug(r.Context(), slug)
		if err != nil {
			writeStorageError(w, "error getting article", slug, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, a)
	}
}

// Delete handles DELETE /api/articles/{slug}.
func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		slog.Info("deleting an article", slog.String("slug", slug))

		if err := store.DeleteArticleBySlug(r.Context(), slug); err != nil {
			writeStorageError(w, "error deleting article", slug, err)
			return
		}

		slog.Info("article deleted", slog.String("slug", slug))
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func writeStorageError(w http.ResponseWriter, msg, slug string, err error) {
	slog.Error(msg, slog.String("slug", slug), slog.String("error", err.Error()))
	status := http.StatusInternalServerError
	if errors.Is(err, storage.ErrNotFound) {
		status = http.StatusNotFound
	}
	response.WriteJSON(w, status, response.GeneralError(err))
}
