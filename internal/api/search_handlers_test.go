package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/search"
	"github.com/libraryapp/library-server/internal/service"
)

func seedSearch(t *testing.T, ts *testServer) {
	t.Helper()
	ctx := context.Background()
	user, _ := ts.signUp(t, "mluukkai")

	books := []service.AddBookInput{
		{Title: "Clean Code", Author: ptr("Robert Martin"), Published: 2008, Genres: []string{"refactoring"}},
		{Title: "Refactoring, edition 2", Author: ptr("Martin Fowler"), Published: 2018, Genres: []string{"refactoring"}},
		{Title: "Crime and punishment", Author: ptr("Fyodor Dostoevsky"), Published: 1866, Genres: []string{"classic", "crime"}},
	}
	for _, b := range books {
		_, err := ts.services.Catalog.AddBook(ctx, user, b, nil)
		require.NoError(t, err)
	}

	indexer := search.NewIndexer(ts.index, ts.services.Catalog, ts.bus, logger.Discard())
	require.NoError(t, indexer.Reindex(ctx))
}

func ptr[T any](v T) *T { return &v }

func TestSearch(t *testing.T) {
	ts := setupTestServer(t, nil)
	seedSearch(t, ts)

	resp := ts.api.Get("/api/v1/search?q=crime")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out SearchResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.NotEmpty(t, out.Books)
	assert.Equal(t, "Crime and punishment", out.Books[0].Title)
	assert.Equal(t, "Fyodor Dostoevsky", out.Books[0].Author.Name)
}

func TestSearch_GenreFilter(t *testing.T) {
	ts := setupTestServer(t, nil)
	seedSearch(t, ts)

	resp := ts.api.Get("/api/v1/search?q=martin&genres=refactoring")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out SearchResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.NotEmpty(t, out.Books)
	for _, b := range out.Books {
		assert.Contains(t, b.Genres, "refactoring")
	}
}

func TestSearch_QueryRequired(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/api/v1/search")

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
}

func TestSearch_Disabled(t *testing.T) {
	ts := setupTestServer(t, func(s *Services, _ *Options) { s.Search = nil })

	resp := ts.api.Get("/api/v1/search?q=crime")

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
