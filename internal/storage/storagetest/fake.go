// Package storagetest provides an in-memory storage.Storage for handler
// and export tests — no database, no filesystem.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/progsite/roster-api/internal/storage"
	"github.com/progsite/roster-api/internal/types"
)

// Fake implements storage.Storage over maps. Setting Err makes every
// method fail with it, for exercising 500 paths.
type Fake struct {
	mu       sync.Mutex
	nextID   int64
	Students map[int64]types.StudentEntry
	Articles map[string]types.Article
	Err      error
}

var _ storage.Storage = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		Students: make(map[int64]types.StudentEntry),
		Articles: make(map[string]types.Article),
	}
}

func (f *Fake) CreateStudent(_ context.Context, entry types.StudentEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	f.nextID++
	entry.ID = f.nextID
	f.Students[entry.ID] = entry
	return entry.ID, nil
}

func (f *Fake) GetStudentByID(_ context.Context, id int64) (types.StudentEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return types.StudentEntry{}, f.Err
	}
	entry, ok := f.Students[id]
	if !ok {
		return types.StudentEntry{}, fmt.Errorf("no student with id %d: %w", id, storage.ErrNotFound)
	}
	return entry, nil
}

func (f *Fake) GetStudents(_ context.Context) ([]types.StudentEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	entries := make([]types.StudentEntry, 0, len(f.Students))
	for _, entry := range f.Students {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (f *Fake) UpdateStudentByID(_ context.Context, id int64, entry types.StudentEntry) (types.StudentEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return types.StudentEntry{}, f.Err
	}
	if _, ok := f.Students[id]; !ok {
		return types.StudentEntry{}, fmt.Errorf("no student with id %d: %w", id, storage.ErrNotFound)
	}
	entry.ID = id
	f.Students[id] = entry
	return entry, nil
}

func (f *Fake) DeleteStudentByID(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.Students[id]; !ok {
		return fmt.Errorf("no student with id %d: %w", id, storage.ErrNotFound)
	}
	delete(f.Students, id)
	return nil
}

func (f *Fake) CreateArticle(_ context.Context, article types.Article) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	if _, ok := f.Articles[article.Slug]; ok {
		return 0, fmt.Errorf("article slug %q: %w", article.Slug, storage.ErrExists)
	}
	f.nextID++
	article.ID = f.nextID
	f.Articles[article.Slug] = article
	return article.ID, nil
}

func (f *Fake) GetArticleBySlug(_ context.Context, slug string) (types.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return types.Article{}, f.Err
	}
	a, ok := f.Articles[slug]
	if !ok {
		return types.Article{}, fmt.Errorf("no article with slug %q: %w", slug, storage.ErrNotFound)
	}
	return a, nil
}

func (f *Fake) GetArticles(_ context.Context) ([]types.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	articles := make([]types.Article, 0, len(f.Articles))
	for _, a := range f.Articles {
		articles = append(articles, a.Meta())
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].Slug < articles[j].Slug })
	return articles, nil
}

func (f *Fake) DeleteArticleBySlug(_ context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.Articles[slug]; !ok {
		return fmt.Errorf("no article with slug %q: %w", slug, storage.ErrNotFound)
	}
	delete(f.Articles, slug)
	return nil
}
