// Package student contains all HTTP handlers for the roster resource.
//
// HANDLER PATTERN — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────
// The router expects handler functions with the signature
//
//	func(http.ResponseWriter, *http.Request)
//
// which has no room for extra parameters like a database. Each exported
// function here is a factory: it accepts the Storage dependency once at
// route-registration time and returns the actual handler, which closes
// over it.
//
//	router.HandleFunc("POST /api/students", student.New(store))
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/progsite/roster-api/internal/storage"
	"github.com/progsite/roster-api/internal/types"
	"github.com/progsite/roster-api/internal/utils/response"
)

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
// Creates a roster entry from the JSON request body.
//
// Request body (JSON):
//
//	{ "name": "Priya", "project_title": "Sparse Jacobians", "email": "priya@example.org",
//	  "proposal_url": "https://example.org/proposal.pdf", "mentors": ["A. Walther"] }
//
// Success response (201 Created):
//
//	{ "id": 1 }
//
// Error responses:
//
//	400 Bad Request  — empty body, malformed JSON, or failed validation
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a roster entry")

		var entry types.StudentEntry

		err := json.NewDecoder(r.Body).Decode(&entry)
		if errors.Is(err, io.EOF) {
			// io.EOF means the body was completely empty — nothing to decode.
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if !validateEntry(w, entry) {
			return
		}

		lastID, err := store.CreateStudent(r.Context(), entry)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		slog.Info("roster entry created", slog.Int64("id", lastID))
		response.WriteJSON(w, http.StatusCreated, map[string]int64{"id": lastID})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/students/{id}
// Fetches a single roster entry by primary key.
//
// Error responses:
//
//	400 Bad Request  — id is not a valid integer
//	404 Not Found    — no entry with that id
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.PathValue extracts the {id} segment — Go 1.22+ ServeMux
		// supports named path parameters in the pattern.
		id := r.PathValue("id")
		slog.Info("getting a roster entry", slog.String("id", id))

		intID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid id: must be an integer")))
			return
		}

		entry, err := store.GetStudentByID(r.Context(), intID)
		if err != nil {
			writeStorageError(w, "error getting roster entry", id, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, entry)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students
// Returns a JSON array of all roster entries.
// Returns an empty array [] (not null) when there are none.
// ─────────────────────────────────────────────────────────────────────────────
func GetList(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all roster entries")

		entries, err := store.GetStudents(r.Context())
		if err != nil {
			slog.Error("error getting roster entries", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, entries)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
// Replaces ALL fields of an existing entry; same validation rules as
// creation. Responds with the updated record.
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("updating a roster entry", slog.String("id", id))

		intID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid id: must be an integer")))
			return
		}

		var entry types.StudentEntry
		err = json.NewDecoder(r.Body).Decode(&entry)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if !validateEntry(w, entry) {
			return
		}

		updated, err := store.UpdateStudentByID(r.Context(), intID, entry)
		if err != nil {
			writeStorageError(w, "error updating roster entry", id, err)
			return
		}

		slog.Info("roster entry updated", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
// Permanently removes a roster entry.
//
// Success response (200 OK):
//
//	{ "status": "deleted" }
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("deleting a roster entry", slog.String("id", id))

		intID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid id: must be an integer")))
			return
		}

		if err := store.DeleteStudentByID(r.Context(), intID); err != nil {
			writeStorageError(w, "error deleting roster entry", id, err)
			return
		}

		slog.Info("roster entry deleted", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// validateEntry runs the validate:"..." tags on the entry and its Past
// block (validator does not descend into a nil pointer, so a returning
// participant's inner rules apply only when Past is set). Writes the 400
// itself and reports whether the caller may continue.
func validateEntry(w http.ResponseWriter, entry types.StudentEntry) bool {
	if err := validator.New().Struct(entry); err != nil {
		validateErrs := err.(validator.ValidationErrors)
		response.WriteJSON(w, http.StatusBadRequest,
			response.ValidationError(validateErrs))
		return false
	}
	if entry.Past != nil {
		if err := validator.New().Struct(entry.Past); err != nil {
			validateErrs := err.(validator.ValidationErrors)
			response.WriteJSON(w, http.StatusBadRequest,
				response.ValidationError(validateErrs))
			return false
		}
	}
	return true
}

// writeStorageError logs and maps a storage failure: ErrNotFound → 404,
// anything else → 500.
func writeStorageError(w http.ResponseWriter, msg, id string, err error) {
	slog.Error(msg, slog.String("id", id), slog.String("error", err.Error()))
	status := http.StatusInternalServerError
	if errors.Is(err, storage.ErrNotFound) {
		status = http.StatusNotFound
	}
	response.WriteJSON(w, status, response.GeneralError(err))
}
