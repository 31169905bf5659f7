package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progsite/roster-api/internal/export"
	"github.com/progsite/roster-api/internal/lint"
	"github.com/progsite/roster-api/internal/storage/storagetest"
	"github.com/progsite/roster-api/internal/types"
)

func TestLintHandler(t *testing.T) {
	store := storagetest.NewFake()
	_, err := store.CreateStudent(context.Background(), types.StudentEntry{
		Name: "Priya Sharma",
		// project title, email, proposal missing on purpose
	})
	require.NoError(t, err)
	_, err = store.CreateArticle(context.Background(), types.Article{
		Slug: "truncated", Title: "Truncated",
		Body: "```cpp\nint main() {}\n", // lost closing fence
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/lint", nil)
	rec := httptest.NewRecorder()
	Lint(store).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report lint.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Checked)
	// 3 missing entry fields + 1 unbalanced fence.
	assert.Equal(t, 4, report.Errors)

	subjects := map[string]bool{}
	for _, issue := range report.Issues {
		subjects[issue.Subject] = true
	}
	assert.True(t, subjects["student/1"])
	assert.True(t, subjects["article/truncated"])
}

func TestLintHandlerStorageError(t *testing.T) {
	store := storagetest.NewFake()
	store.Err = os.ErrPermission

	req := httptest.NewRequest(http.MethodGet, "/api/lint", nil)
	rec := httptest.NewRecorder()
	Lint(store).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestExportHandler(t *testing.T) {
	store := storagetest.NewFake()
	dir := t.TempDir()
	exporter := export.New(store, dir)

	req := httptest.NewRequest(http.MethodPost, "/api/export", nil)
	rec := httptest.NewRecorder()
	Export(exporter).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Status string   `json:"status"`
		Files  []string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Contains(t, got.Files, "students.json")

	_, err := os.Stat(filepath.Join(dir, "students.json"))
	assert.NoError(t, err)
}
