package recipe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/recipes", func(w http.ResponseWriter, r *http.Request) {
		out := []domain.RecipeSummary{{ID: "r1", Name: "Pasta"}}
		if r.URL.Query().Get("q") == "none" {
			out = []domain.RecipeSummary{}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/api/recipes/r1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.Recipe{
			ID:   "r1",
			Name: "Pasta",
			Steps: []domain.Step{
				{Order: domain.Ordered(1), Title: "Boil", Description: "boil water"},
				{Title: "Note", Description: "serve hot", ImageURL: "https://img/1.png"},
			},
		})
	})
	mux.HandleFunc("/api/recipes/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Category{{ID: "pasta", Name: "Pasta"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSourceGet(t *testing.T) {
	srv := newAPI(t)
	src := NewHTTPSource(srv.URL+"/api/", logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	r, err := src.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Pasta", r.Name)
	require.Len(t, r.Steps, 2)
	assert.Equal(t, 1, *r.Steps[0].Order)
	assert.Nil(t, r.Steps[1].Order)
	assert.Equal(t, "https://img/1.png", r.Steps[1].ImageURL)

	_, err = src.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = src.Get(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPSourceListing(t *testing.T) {
	srv := newAPI(t)
	src := NewHTTPSource(srv.URL+"/api", logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	list, err := src.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	found, err := src.Search(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, found)

	cats, err := src.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{{ID: "pasta", Name: "Pasta"}}, cats)
}
