package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progsite/roster-api/internal/config"
	"github.com/progsite/roster-api/internal/storage"
	"github.com/progsite/roster-api/internal/types"
)

func testStore(t *testing.T) *SQLite {
	t.Helper()
	cfg := &config.Config{StoragePath: filepath.Join(t.TempDir(), "roster.db")}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Db.Close() })
	return s
}

func sampleEntry() types.StudentEntry {
	return types.StudentEntry{
		Name:         "Priya Sharma",
		Photo:        "images/priya.jpg",
		ProjectTitle: "Sparse Jacobian propagation",
		Email:        "priya@example.org",
		Education:    "MSc, TU Berlin",
		Description:  "Propagating sparsity patterns through taped programs.",
		ProposalURL:  "https://example.org/proposals/priya.pdf",
		Mentors:      []string{"A. Walther", "B. Kulshreshtha"},
		Past: &types.PastParticipation{
			ProjectTitle: "Checkpointing schedules",
			ProposalURL:  "https://example.org/proposals/priya-2025.pdf",
			Mentors:      []string{"A. Walther"},
		},
	}
}

func TestStudentRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateStudent(ctx, sampleEntry())
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	got, err := s.GetStudentByID(ctx, id)
	require.NoError(t, err)

	want := sampleEntry()
	want.ID = id
	assert.Equal(t, want, got)
}

func TestStudentWithoutPast(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	entry := sampleEntry()
	entry.Past = nil
	entry.Mentors = nil

	id, err := s.CreateStudent(ctx, entry)
	require.NoError(t, err)

	got, err := s.GetStudentByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.Past)
	assert.Nil(t, got.Mentors)
}

func TestGetStudents(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	list, err := s.GetStudents(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = s.CreateStudent(ctx, sampleEntry())
	require.NoError(t, err)
	second := sampleEntry()
	second.Name = "Rahul Verma"
	second.Email = "rahul@example.org"
	_, err = s.CreateStudent(ctx, second)
	require.NoError(t, err)

	list, err = s.GetStudents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Priya Sharma", list[0].Name)
	assert.Equal(t, "Rahul Verma", list[1].Name)
}

func TestUpdateStudent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateStudent(ctx, sampleEntry())
	require.NoError(t, err)

	updated := sampleEntry()
	updated.ProjectTitle = "Sparse Hessians"
	updated.Past = nil

	got, err := s.UpdateStudentByID(ctx, id, updated)
	require.NoError(t, err)
	assert.Equal(t, "Sparse Hessians", got.ProjectTitle)
	assert.Nil(t, got.Past)

	_, err = s.UpdateStudentByID(ctx, 999, updated)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteStudent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateStudent(ctx, sampleEntry())
	require.NoError(t, err)

	require.NoError(t, s.DeleteStudentByID(ctx, id))

	_, err = s.GetStudentByID(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, s.DeleteStudentByID(ctx, id), storage.ErrNotFound)
}

func TestArticleRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a := types.Article{
		Slug:    "gpu-tutorial",
		Title:   "Differentiating kernels on a GPU",
		Author:  "J. Doe",
		Date:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Tags:    []string{"tutorial", "gpu"},
		Summary: "Device-code walkthrough.",
		Body:    "Intro.\n\n```cpp\nint main() {}\n```\n",
	}

	id, err := s.CreateArticle(ctx, a)
	require.NoError(t, err)
	a.ID = id

	got, err := s.GetArticleBySlug(ctx, "gpu-tutorial")
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)
	assert.Equal(t, a.Tags, got.Tags)
	assert.Equal(t, a.Body, got.Body)
	assert.True(t, a.Date.Equal(got.Date))

	// Duplicate slug is rejected.
	_, err = s.CreateArticle(ctx, a)
	assert.ErrorIs(t, err, storage.ErrExists)
}

func TestUniqueViolationMapsToErrExists(t *testing.T) {
	// CreateArticle pre-checks the slug, but a racing insert loses to
	// the UNIQUE constraint instead; that driver error must read as a
	// duplicate, not a fault.
	s := testStore(t)

	_, err := s.Db.Exec(`INSERT INTO articles (slug, title, body) VALUES ('dup', 't', 'b')`)
	require.NoError(t, err)

	_, err = s.Db.Exec(`INSERT INTO articles (slug, title, body) VALUES ('dup', 't', 'b')`)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
	assert.False(t, isUniqueViolation(context.Canceled))
}

func TestUndatedArticle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.CreateArticle(ctx, types.Article{
		Slug: "undated", Title: "No Date", Body: "x",
	})
	require.NoError(t, err)

	got, err := s.GetArticleBySlug(ctx, "undated")
	require.NoError(t, err)
	assert.True(t, got.Date.IsZero())
}

func TestGetArticlesOmitsBodies(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	older := types.Article{
		Slug: "older", Title: "Older",
		Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Body: "old body",
	}
	newer := types.Article{
		Slug: "newer", Title: "Newer",
		Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Body: "new body",
	}
	_, err := s.CreateArticle(ctx, older)
	require.NoError(t, err)
	_, err = s.CreateArticle(ctx, newer)
	require.NoError(t, err)

	list, err := s.GetArticles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Newest first, bodies omitted.
	assert.Equal(t, "newer", list[0].Slug)
	assert.Empty(t, list[0].Body)
	assert.Empty(t, list[1].Body)
}

func TestDeleteArticle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.CreateArticle(ctx, types.Article{Slug: "gone", Title: "Gone", Body: "x"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteArticleBySlug(ctx, "gone"))
	assert.ErrorIs(t, s.DeleteArticleBySlug(ctx, "gone"), storage.ErrNotFound)
}
