package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeSource = (*HTTPSource)(nil)

// HTTPOption configures the HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) { s.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) { s.http = c }
}

// HTTPSource reads recipes from the read-only recipe API:
//
//	GET {base}/recipes           -> []RecipeSummary
//	GET {base}/recipes?q=query   -> []RecipeSummary
//	GET {base}/recipes/{id}      -> Recipe (404 when unknown)
//	GET {base}/categories        -> []Category
type HTTPSource struct {
	base string
	http *http.Client
	log  *logger.Logger
}

// NewHTTPSource creates a client for the API rooted at base
// (e.g. "https://recipes.example.com/api").
func NewHTTPSource(base string, log *logger.Logger, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns summaries of all recipes.
func (s *HTTPSource) List(ctx context.Context) ([]domain.RecipeSummary, error) {
	var out []domain.RecipeSummary
	if err := s.getJSON(ctx, "/recipes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search asks the API for recipes matching query.
func (s *HTTPSource) Search(ctx context.Context, query string) ([]domain.RecipeSummary, error) {
	var out []domain.RecipeSummary
	if err := s.getJSON(ctx, "/recipes?q="+url.QueryEscape(query), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a recipe by ID, or domain.ErrNotFound.
func (s *HTTPSource) Get(ctx context.Context, id domain.RecipeID) (*domain.Recipe, error) {
	var r domain.Recipe
	if err := s.getJSON(ctx, "/recipes/"+url.PathEscape(string(id)), &r); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = id
	}
	return &r, nil
}

// Categories returns the recipe categories.
func (s *HTTPSource) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := s.getJSON(ctx, "/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, dst any) error {
	endpoint := s.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("recipe api: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	s.log.Debug("recipe api: GET %s", endpoint)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("recipe api: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("recipe api: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("recipe api: %s: %s", resp.Status, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("recipe api: decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
