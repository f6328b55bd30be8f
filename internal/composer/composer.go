// Package composer merges several recipes into one cooking timeline.
package composer

import (
	"context"
	"errors"

	"github.com/hammamikhairi/vibecook/internal/domain"
)

// Compose resolves every id through lookup and flattens their steps into
// one session: recipes in the given order, each recipe's steps in authored
// order. Repeated ids are composed once. Any lookup failure aborts the whole
// composition with a *domain.RecipeNotFoundError naming the id.
//
// Compose is pure with respect to its inputs: the same ids and lookup data
// always yield the same step sequence.
func Compose(ctx context.Context, ids []domain.RecipeID, lookup domain.RecipeLookup) (*domain.ComposedSession, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, domain.ErrNoSession
	}

	// Resolve everything first so a late failure leaves nothing behind.
	recipes := make([]*domain.Recipe, 0, len(ids))
	for _, id := range ids {
		r, err := lookup.Get(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &domain.RecipeNotFoundError{ID: id, Err: err}
		}
		if r == nil {
			return nil, &domain.RecipeNotFoundError{ID: id}
		}
		recipes = append(recipes, r)
	}

	total := 0
	for _, r := range recipes {
		total += len(r.Steps)
	}

	session := &domain.ComposedSession{
		Steps:            make([]domain.SessionStep, 0, total),
		CurrentStepIndex: 0,
	}
	for i, r := range recipes {
		title := r.Name
		if title == "" {
			title = string(ids[i])
		}
		for _, st := range r.Steps {
			session.Steps = append(session.Steps, domain.SessionStep{
				RecipeID:    ids[i],
				RecipeTitle: title,
				Step:        copyStep(st),
			})
		}
	}
	return session, nil
}

func dedupe(ids []domain.RecipeID) []domain.RecipeID {
	seen := make(map[domain.RecipeID]bool, len(ids))
	out := make([]domain.RecipeID, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// copyStep detaches the session from the lookup's recipe data.
func copyStep(st domain.Step) domain.Step {
	if st.Order != nil {
		st.Order = domain.Ordered(*st.Order)
	}
	return st
}
