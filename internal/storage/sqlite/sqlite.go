// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite stores everything in a single file on disk — no network, no
// separate server process. It is the default backend and plenty for a
// roster edited a handful of times per program cycle.
//
// The blank import below registers the sqlite3 driver with database/sql.
// The driver's init() function does this automatically when the package
// is loaded — we never call anything from it directly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/progsite/roster-api/internal/config"
	"github.com/progsite/roster-api/internal/storage"
	"github.com/progsite/roster-api/internal/types"

	// Registers the "sqlite3" driver with database/sql; also used to
	// recognise constraint errors.
	"github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB, which is a connection pool managed by database/sql
// and safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

// Dates are stored as RFC 3339 TEXT; the zero time is stored as ''.
const dateLayout = time.RFC3339

// New opens the SQLite database at cfg.StoragePath, creates the tables
// if they do not already exist, and returns a ready-to-use *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	// sql.Open does NOT open a real connection yet — it just validates
	// the driver name. The first actual connection happens on the first
	// query.
	db, err := sql.Open("sqlite3", cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// CREATE TABLE IF NOT EXISTS is idempotent — safe on every startup.
	//
	// The past_* columns hold the optional prior-year participation,
	// flattened. DEFAULT '' instead of NULL keeps Scan free of
	// sql.NullString; absence = empty past_project_title AND
	// past_proposal_url.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			name               TEXT NOT NULL,
			photo              TEXT NOT NULL DEFAULT '',
			project_title      TEXT NOT NULL,
			email              TEXT NOT NULL,
			education          TEXT NOT NULL DEFAULT '',
			description        TEXT NOT NULL DEFAULT '',
			proposal_url       TEXT NOT NULL,
			mentors            TEXT NOT NULL DEFAULT '',
			past_project_title TEXT NOT NULL DEFAULT '',
			past_description   TEXT NOT NULL DEFAULT '',
			past_proposal_url  TEXT NOT NULL DEFAULT '',
			past_mentors       TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: create students table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			slug    TEXT NOT NULL UNIQUE,
			title   TEXT NOT NULL,
			author  TEXT NOT NULL DEFAULT '',
			date    TEXT NOT NULL DEFAULT '',
			tags    TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			body    TEXT NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: create articles table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateStudent inserts a new row into the students table.
//
// Prepared statements with ? placeholders keep user input out of the SQL
// text entirely — the driver sends values separately, so they are never
// interpreted as syntax.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateStudent(ctx context.Context, entry types.StudentEntry) (int64, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		INSERT INTO students (
			name, photo, project_title, email, education, description,
			proposal_url, mentors,
			past_project_title, past_description, past_proposal_url, past_mentors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("CreateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	past := flattenPast(entry.Past)
	result, err := stmt.ExecContext(ctx,
		entry.Name, entry.Photo, entry.ProjectTitle, entry.Email,
		entry.Education, entry.Description, entry.ProposalURL,
		types.JoinNames(entry.Mentors),
		past.projectTitle, past.description, past.proposalURL, past.mentors,
	)
	if err != nil {
		return 0, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateStudent: last insert id: %w", err)
	}

	return lastID, nil
}

// studentColumns is the SELECT list every student query uses, so the
// Scan ordering lives in exactly one place.
const studentColumns = `
	id, name, photo, project_title, email, education, description,
	proposal_url, mentors,
	past_project_title, past_description, past_proposal_url, past_mentors
`

// GetStudentByID fetches exactly one roster row matched by primary key.
func (s *SQLite) GetStudentByID(ctx context.Context, id int64) (types.StudentEntry, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE id = ? LIMIT 1",
	)
	if err != nil {
		return types.StudentEntry{}, fmt.Errorf("GetStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	entry, err := scanStudent(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.StudentEntry{}, fmt.Errorf("no student with id %d: %w", id, storage.ErrNotFound)
		}
		return types.StudentEntry{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return entry, nil
}

// GetStudents returns all roster rows as a slice.
// Returns [] (not nil) when the table is empty — better JSON behaviour.
func (s *SQLite) GetStudents(ctx context.Context) ([]types.StudentEntry, error) {
	// Explicit column list — SELECT * would break Scan ordering the day
	// a column is added.
	rows, err := s.Db.QueryContext(ctx, "SELECT "+studentColumns+" FROM students ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	entries := make([]types.StudentEntry, 0)
	for rows.Next() {
		entry, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}

	return entries, nil
}

// UpdateStudentByID replaces an entry's data with the provided values
// and returns the stored result so the caller can echo it back.
func (s *SQLite) UpdateStudentByID(ctx context.Context, id int64, entry types.StudentEntry) (types.StudentEntry, error) {
	if _, err := s.GetStudentByID(ctx, id); err != nil {
		return types.StudentEntry{}, err
	}

	stmt, err := s.Db.PrepareContext(ctx, `
		UPDATE students SET
			name = ?, photo = ?, project_title = ?, email = ?,
			education = ?, description = ?, proposal_url = ?, mentors = ?,
			past_project_title = ?, past_description = ?,
			past_proposal_url = ?, past_mentors = ?
		WHERE id = ?
	`)
	if err != nil {
		return types.StudentEntry{}, fmt.Errorf("UpdateStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	past := flattenPast(entry.Past)
	_, err = stmt.ExecContext(ctx,
		entry.Name, entry.Photo, entry.ProjectTitle, entry.Email,
		entry.Education, entry.Description, entry.ProposalURL,
		types.JoinNames(entry.Mentors),
		past.projectTitle, past.description, past.proposalURL, past.mentors,
		id,
	)
	if err != nil {
		return types.StudentEntry{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}

	// Re-fetch so we return exactly what is stored.
	return s.GetStudentByID(ctx, id)
}

// DeleteStudentByID removes a roster row by primary key.
func (s *SQLite) DeleteStudentByID(ctx context.Context, id int64) error {
	result, err := s.Db.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no student with id %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Article storage
// ─────────────────────────────────────────────────────────────────────────────

// CreateArticle stores a parsed tutorial document. The slug pre-check
// keeps the ErrExists mapping driver-agnostic; the UNIQUE constraint
// backs it up against races.
func (s *SQLite) CreateArticle(ctx context.Context, article types.Article) (int64, error) {
	var existing int64
	err := s.Db.QueryRowContext(ctx,
		"SELECT id FROM articles WHERE slug = ? LIMIT 1", article.Slug,
	).Scan(&existing)
	if err == nil {
		return 0, fmt.Errorf("article slug %q: %w", article.Slug, storage.ErrExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("CreateArticle: check slug: %w", err)
	}

	result, err := s.Db.ExecContext(ctx, `
		INSERT INTO articles (slug, title, author, date, tags, summary, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		article.Slug, article.Title, article.Author, formatDate(article.Date),
		types.JoinNames(article.Tags), article.Summary, article.Body,
	)
	if err != nil {
		// Two creates racing past the pre-check: the UNIQUE constraint
		// fires on the loser, which is still a duplicate, not a fault.
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("article slug %q: %w", article.Slug, storage.ErrExists)
		}
		return 0, fmt.Errorf("CreateArticle: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateArticle: last insert id: %w", err)
	}
	return lastID, nil
}

// GetArticleBySlug fetches one article, body included.
func (s *SQLite) GetArticleBySlug(ctx context.Context, slug string) (types.Article, error) {
	row := s.Db.QueryRowContext(ctx, `
		SELECT id, slug, title, author, date, tags, summary, body
		FROM articles WHERE slug = ? LIMIT 1
	`, slug)

	var a types.Article
	var date, tags string
	err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.Author, &date, &tags, &a.Summary, &a.Body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Article{}, fmt.Errorf("no article with slug %q: %w", slug, storage.ErrNotFound)
		}
		return types.Article{}, fmt.Errorf("GetArticleBySlug: scan: %w", err)
	}

	a.Tags = types.SplitNames(tags)
	if a.Date, err = parseDate(date); err != nil {
		return types.Article{}, fmt.Errorf("GetArticleBySlug: date column: %w", err)
	}
	return a, nil
}

// GetArticles returns metadata for every article, newest first.
// Bodies are not selected — list responses and the generator index only
// need metadata.
func (s *SQLite) GetArticles(ctx context.Context) ([]types.Article, error) {
	rows, err := s.Db.QueryContext(ctx, `
		SELECT id, slug, title, author, date, tags, summary
		FROM articles ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("GetArticles: query: %w", err)
	}
	defer rows.Close()

	articles := make([]types.Article, 0)
	for rows.Next() {
		var a types.Article
		var date, tags string
		if err := rows.Scan(&a.ID, &a.Slug, &a.Title, &a.Author, &date, &tags, &a.Summary); err != nil {
			return nil, fmt.Errorf("GetArticles: scan row: %w", err)
		}
		a.Tags = types.SplitNames(tags)
		if a.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("GetArticles: date column: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetArticles: rows iteration: %w", err)
	}

	return articles, nil
}

// DeleteArticleBySlug removes an article by its slug.
func (s *SQLite) DeleteArticleBySlug(ctx context.Context, slug string) error {
	result, err := s.Db.ExecContext(ctx, "DELETE FROM articles WHERE slug = ?", slug)
	if err != nil {
		return fmt.Errorf("DeleteArticleBySlug: exec: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteArticleBySlug: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no article with slug %q: %w", slug, storage.ErrNotFound)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Column helpers
// ─────────────────────────────────────────────────────────────────────────────

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (types.StudentEntry, error) {
	var entry types.StudentEntry
	var mentors string
	var pastTitle, pastDesc, pastURL, pastMentors string

	err := row.Scan(
		&entry.ID, &entry.Name, &entry.Photo, &entry.ProjectTitle,
		&entry.Email, &entry.Education, &entry.Description,
		&entry.ProposalURL, &mentors,
		&pastTitle, &pastDesc, &pastURL, &pastMentors,
	)
	if err != nil {
		return types.StudentEntry{}, err
	}

	entry.Mentors = types.SplitNames(mentors)
	if pastTitle != "" || pastURL != "" {
		entry.Past = &types.PastParticipation{
			ProjectTitle: pastTitle,
			Description:  pastDesc,
			ProposalURL:  pastURL,
			Mentors:      types.SplitNames(pastMentors),
		}
	}
	return entry, nil
}

type flatPast struct {
	projectTitle, description, proposalURL, mentors string
}

func flattenPast(p *types.PastParticipation) flatPast {
	if p == nil {
		return flatPast{}
	}
	return flatPast{
		projectTitle: p.ProjectTitle,
		description:  p.Description,
		proposalURL:  p.ProposalURL,
		mentors:      types.JoinNames(p.Mentors),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
