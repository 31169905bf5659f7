package article

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progsite/roster-api/internal/storage/storagetest"
	"github.com/progsite/roster-api/internal/types"
)

const sampleDoc = `---
title: Differentiating kernels on a GPU
author: J. Doe
date: 2026-03-01
tags: [tutorial, gpu]
---

Intro paragraph.

` + "```cpp\n__global__ void kernel() {}\n```" + `
`

func router(store *storagetest.Fake) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/articles", New(store))
	mux.HandleFunc("GET /api/articles", GetList(store))
	mux.HandleFunc("GET /api/articles/{slug}", GetBySlug(store))
	mux.HandleFunc("DELETE /api/articles/{slug}", Delete(store))
	return mux
}

func post(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/markdown")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestIngest(t *testing.T) {
	store := storagetest.NewFake()
	rec := post(router(store), sampleDoc)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "differentiating-kernels-on-a-gpu", got["slug"])

	stored := store.Articles["differentiating-kernels-on-a-gpu"]
	assert.Equal(t, "J. Doe", stored.Author)
	assert.Contains(t, stored.Body, "__global__ void kernel()")
}

func TestIngestEmptyBody(t *testing.T) {
	rec := post(router(storagetest.NewFake()), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestMissingFrontMatter(t *testing.T) {
	rec := post(router(storagetest.NewFake()), "plain markdown, no fences\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "front matter")
}

func TestIngestUntitled(t *testing.T) {
	rec := post(router(storagetest.NewFake()), "---\nauthor: J. Doe\n---\nbody\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestTraversalSlug(t *testing.T) {
	store := storagetest.NewFake()
	rec := post(router(store), "---\nslug: ../../escaped\ntitle: Escape\n---\nbody\n")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid slug")
	assert.Empty(t, store.Articles)
}

func TestIngestDuplicateSlug(t *testing.T) {
	store := storagetest.NewFake()
	mux := router(store)

	require.Equal(t, http.StatusCreated, post(mux, sampleDoc).Code)
	require.Equal(t, http.StatusConflict, post(mux, sampleDoc).Code)
}

func TestGetBySlug(t *testing.T) {
	store := storagetest.NewFake()
	mux := router(store)
	require.Equal(t, http.StatusCreated, post(mux, sampleDoc).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/articles/differentiating-kernels-on-a-gpu", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got types.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Body)
}

func TestGetBySlugNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/articles/nope", nil)
	rec := httptest.NewRecorder()
	router(storagetest.NewFake()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOmitsBodies(t *testing.T) {
	store := storagetest.NewFake()
	_, err := store.CreateArticle(context.Background(), types.Article{
		Slug: "s1", Title: "One", Body: "content",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	rec := httptest.NewRecorder()
	router(store).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []types.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Body)
}

func TestDelete(t *testing.T) {
	store := storagetest.NewFake()
	mux := router(store)
	require.Equal(t, http.StatusCreated, post(mux, sampleDoc).Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/articles/differentiating-kernels-on-a-gpu", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.Articles)
}
