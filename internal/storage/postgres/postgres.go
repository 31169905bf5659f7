// Package postgres implements storage.Storage on PostgreSQL through a
// pgx connection pool. Selected with `storage: postgres` in the config;
// handlers are unchanged because they only see the interface.
//
// The schema mirrors the sqlite backend column for column so the two
// stay interchangeable; list-valued fields use the same joined-text
// codec from the types package.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/progsite/roster-api/internal/storage"
	"github.com/progsite/roster-api/internal/types"
)

// Postgres is the concrete implementation of storage.Storage.
// A *pgxpool.Pool is safe for concurrent use by multiple goroutines.
type Postgres struct {
	Pool *pgxpool.Pool
}

// New connects to the database at dsn and ensures the schema exists.
func New(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS students (
			id                 BIGSERIAL PRIMARY KEY,
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
		);
		CREATE TABLE IF NOT EXISTS articles (
			id      BIGSERIAL PRIMARY KEY,
			slug    TEXT NOT NULL UNIQUE,
			title   TEXT NOT NULL,
			author  TEXT NOT NULL DEFAULT '',
			date    TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
			tags    TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			body    TEXT NOT NULL
		);
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ensure schema: %w", err)
	}

	return &Postgres{Pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.Pool.Close()
}

const studentColumns = `
	id, name, photo, project_title, email, education, description,
	proposal_url, mentors,
	past_project_title, past_description, past_proposal_url, past_mentors
`

func (p *Postgres) CreateStudent(ctx context.Context, entry types.StudentEntry) (int64, error) {
	past := flattenPast(entry.Past)

	var id int64
	err := p.Pool.QueryRow(ctx, `
		INSERT INTO students (
			name, photo, project_title, email, education, description,
			proposal_url, mentors,
			past_project_title, past_description, past_proposal_url, past_mentors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		entry.Name, entry.Photo, entry.ProjectTitle, entry.Email,
		entry.Education, entry.Description, entry.ProposalURL,
		types.JoinNames(entry.Mentors),
		past.projectTitle, past.description, past.proposalURL, past.mentors,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateStudent: insert: %w", err)
	}

	return id, nil
}

func (p *Postgres) GetStudentByID(ctx context.Context, id int64) (types.StudentEntry, error) {
	row := p.Pool.QueryRow(ctx,
		"SELECT "+studentColumns+" FROM students WHERE id = $1", id)

	entry, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.StudentEntry{}, fmt.Errorf("no student with id %d: %w", id, storage.ErrNotFound)
		}
		return types.StudentEntry{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}
	return entry, nil
}

func (p *Postgres) GetStudents(ctx context.Context) ([]types.StudentEntry, error) {
	rows, err := p.Pool.Query(ctx,
		"SELECT "+studentColumns+" FROM students ORDER BY id")
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

func (p *Postgres) UpdateStudentByID(ctx context.Context, id int64, entry types.StudentEntry) (types.StudentEntry, error) {
	past := flattenPast(entry.Past)

	tag, err := p.Pool.Exec(ctx, `
		UPDATE students SET
			name = $1, photo = $2, project_title = $3, email = $4,
			education = $5, description = $6, proposal_url = $7, mentors = $8,
			past_project_title = $9, past_description = $10,
			past_proposal_url = $11, past_mentors = $12
		WHERE id = $13
	`,
		entry.Name, entry.Photo, entry.ProjectTitle, entry.Email,
		entry.Education, entry.Description, entry.ProposalURL,
		types.JoinNames(entry.Mentors),
		past.projectTitle, past.description, past.proposalURL, past.mentors,
		id,
	)
	if err != nil {
		return types.StudentEntry{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.StudentEntry{}, fmt.Errorf("no student with id %d: %w", id, storage.ErrNotFound)
	}

	return p.GetStudentByID(ctx, id)
}

func (p *Postgres) DeleteStudentByID(ctx context.Context, id int64) error {
	tag, err := p.Pool.Exec(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no student with id %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (p *Postgres) CreateArticle(ctx context.Context, article types.Article) (int64, error) {
	var existing int64
	err := p.Pool.QueryRow(ctx,
		"SELECT id FROM articles WHERE slug = $1", article.Slug).Scan(&existing)
	if err == nil {
		return 0, fmt.Errorf("article slug %q: %w", article.Slug, storage.ErrExists)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("CreateArticle: check slug: %w", err)
	}

	var id int64
	err = p.Pool.QueryRow(ctx, `
		INSERT INTO articles (slug, title, author, date, tags, summary, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		article.Slug, article.Title, article.Author, storedDate(article.Date),
		types.JoinNames(article.Tags), article.Summary, article.Body,
	).Scan(&id)
	if err != nil {
		// A create racing past the pre-check loses to the UNIQUE
		// constraint; still a duplicate, not a fault.
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("article slug %q: %w", article.Slug, storage.ErrExists)
		}
		return 0, fmt.Errorf("CreateArticle: insert: %w", err)
	}
	return id, nil
}

// unique_violation in the Postgres error-code table.
const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func (p *Postgres) GetArticleBySlug(ctx context.Context, slug string) (types.Article, error) {
	row := p.Pool.QueryRow(ctx, `
		SELECT id, slug, title, author, date, tags, summary, body
		FROM articles WHERE slug = $1
	`, slug)

	var a types.Article
	var date time.Time
	var tags string
	err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.Author, &date, &tags, &a.Summary, &a.Body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Article{}, fmt.Errorf("no article with slug %q: %w", slug, storage.ErrNotFound)
		}
		return types.Article{}, fmt.Errorf("GetArticleBySlug: scan: %w", err)
	}

	a.Date = loadedDate(date)
	a.Tags = types.SplitNames(tags)
	return a, nil
}

func (p *Postgres) GetArticles(ctx context.Context) ([]types.Article, error) {
	rows, err := p.Pool.Query(ctx, `
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
		var date time.Time
		var tags string
		if err := rows.Scan(&a.ID, &a.Slug, &a.Title, &a.Author, &date, &tags, &a.Summary); err != nil {
			return nil, fmt.Errorf("GetArticles: scan row: %w", err)
		}
		a.Date = loadedDate(date)
		a.Tags = types.SplitNames(tags)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetArticles: rows iteration: %w", err)
	}
	return articles, nil
}

func (p *Postgres) DeleteArticleBySlug(ctx context.Context, slug string) error {
	tag, err := p.Pool.Exec(ctx, "DELETE FROM articles WHERE slug = $1", slug)
	if err != nil {
		return fmt.Errorf("DeleteArticleBySlug: exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no article with slug %q: %w", slug, storage.ErrNotFound)
	}
	return nil
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

// The articles.date column is NOT NULL; undated articles are stored as
// the Unix epoch and loaded back as the zero time.
func storedDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t
}

func loadedDate(t time.Time) time.Time {
	if t.Equal(time.Unix(0, 0).UTC()) {
		return time.Time{}
	}
	return t
}
