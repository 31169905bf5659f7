// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// Handlers (HTTP layer) should not know or care which database they are
// talking to. By depending only on this interface, switching backends is
// one line in main.go and tests can pass a fake. Both shipped backends
// (sqlite, postgres) satisfy it.
package storage

import (
	"context"
	"errors"

	"github.com/progsite/roster-api/internal/types"
)

// ErrNotFound is returned when a lookup matches no record. Handlers
// translate it to 404 instead of leaking driver-level errors.
var ErrNotFound = errors.New("record not found")

// ErrExists is returned when creating an article whose slug is already
// taken. Slugs are the natural key the site generator addresses pages by.
var ErrExists = errors.New("record already exists")

// Storage is the database contract. Any concrete type that implements
// all of these methods satisfies the interface implicitly.
//
// Every method takes a context so callers can carry request deadlines
// and cancellation down to the driver.
type Storage interface {
	// CreateStudent inserts a new roster entry and returns the auto-
	// generated primary-key ID.
	CreateStudent(ctx context.Context, entry types.StudentEntry) (int64, error)

	// GetStudentByID fetches a single entry by primary key.
	// Returns an error wrapping ErrNotFound if nothing matches.
	GetStudentByID(ctx context.Context, id int64) (types.StudentEntry, error)

	// GetStudents returns every roster entry.
	// Returns an empty slice (not nil) if there are none.
	GetStudents(ctx context.Context) ([]types.StudentEntry, error)

	// UpdateStudentByID replaces the fields of an existing entry and
	// returns the updated record.
	UpdateStudentByID(ctx context.Context, id int64, entry types.StudentEntry) (types.StudentEntry, error)

	// DeleteStudentByID removes a roster entry permanently.
	DeleteStudentByID(ctx context.Context, id int64) error

	// CreateArticle stores a parsed tutorial document. Returns an error
	// wrapping ErrExists when the slug is already taken.
	CreateArticle(ctx context.Context, article types.Article) (int64, error)

	// GetArticleBySlug fetches one article, body included.
	GetArticleBySlug(ctx context.Context, slug string) (types.Article, error)

	// GetArticles returns metadata for every article, bodies omitted.
	GetArticles(ctx context.Context) ([]types.Article, error)

	// DeleteArticleBySlug removes an article permanently.
	DeleteArticleBySlug(ctx context.Context, slug string) error
}
