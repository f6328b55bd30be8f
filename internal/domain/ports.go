package domain

import (
	"context"
	"io"
)

// RecipeLookup resolves a single recipe. Returns ErrNotFound when the id is
// unknown.
type RecipeLookup interface {
	Get(ctx context.Context, id RecipeID) (*Recipe, error)
}

// RecipeSource provides recipes for browsing. Implementations can be
// in-memory (hardcoded) or backed by the read-only recipe API.
type RecipeSource interface {
	RecipeLookup
	List(ctx context.Context) ([]RecipeSummary, error)
	Search(ctx context.Context, query string) ([]RecipeSummary, error)
	Categories(ctx context.Context) ([]Category, error)
}

// KeyValueStore is the generic persistence primitive. Values are raw JSON.
// Get returns ErrNotFound for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// Watch registers fn for changes made through this process. It returns
	// a function that removes the registration.
	Watch(fn func(key string)) (cancel func())
}

// Transcriber turns a packaged audio payload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// Notifier delivers messages to the user. Implementations can write to
// stdout or play an audible cue.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
