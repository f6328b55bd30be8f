// Package domain defines the core types and interfaces for vibe cooking.
// All other packages depend on domain; domain depends on nothing.
package domain

// RecipeID identifies a recipe. IDs are issued by the recipe API and are
// never generated locally.
type RecipeID string

// Recipe represents a complete recipe with its ordered instructions.
type Recipe struct {
	ID          RecipeID `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Steps       []Step   `json:"steps"`
}

// RecipeSummary is a lightweight view of a recipe for listing.
type RecipeSummary struct {
	ID          RecipeID `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Summary returns the listing view of the recipe.
func (r *Recipe) Summary() RecipeSummary {
	return RecipeSummary{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		ImageURL:    r.ImageURL,
		Tags:        r.Tags,
	}
}

// Category groups recipes for browsing.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Step is a single instruction of a recipe.
type Step struct {
	// Order is the 1-based position within the owning recipe. Nil marks an
	// unordered note (e.g. "serve warm").
	Order       *int   `json:"order,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Ordered returns a pointer to n, for building Steps inline.
func Ordered(n int) *int {
	return &n
}
