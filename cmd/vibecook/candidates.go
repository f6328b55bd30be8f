package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hammamikhairi/vibecook/internal/domain"
)

// CandidatesCmd manages the shortlist from the command line.
type CandidatesCmd struct {
	List   CandidatesListCmd   `cmd:"" default:"1" help:"Show the shortlisted recipes."`
	Add    CandidatesAddCmd    `cmd:"" help:"Shortlist recipes."`
	Remove CandidatesRemoveCmd `cmd:"" help:"Drop recipes from the shortlist."`
	Clear  CandidatesClearCmd  `cmd:"" help:"Empty the shortlist."`
}

// CandidatesListCmd prints the shortlist.
type CandidatesListCmd struct{}

// Run executes the list command.
func (c *CandidatesListCmd) Run(e *env) error {
	return withCandidates(e, func(ctx context.Context, s *stack) error {
		ids := s.candidates.List()
		if len(ids) == 0 {
			fmt.Println("No recipes shortlisted.")
			return nil
		}
		for i, id := range ids {
			name := "(unknown recipe)"
			if r, err := s.recipes.Get(ctx, id); err == nil {
				name = r.Name
			}
			fmt.Printf("%d. %-22s %s\n", i+1, id, name)
		}
		fmt.Printf("%d of %d slots used.\n", len(ids), s.candidates.MaxSize())
		return nil
	})
}

// CandidatesAddCmd shortlists recipes.
type CandidatesAddCmd struct {
	IDs []string `arg:"" help:"Recipe ids."`
}

// Run executes the add command.
func (c *CandidatesAddCmd) Run(e *env) error {
	return withCandidates(e, func(ctx context.Context, s *stack) error {
		for _, raw := range c.IDs {
			id := domain.RecipeID(raw)
			if _, err := s.recipes.Get(ctx, id); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("recipe %q not found", id)
				}
				return err
			}
			if s.candidates.Full() && !s.candidates.Contains(id) {
				fmt.Printf("Shortlist is full (%d); %s not added.\n", s.candidates.MaxSize(), id)
				continue
			}
			if err := s.candidates.Add(ctx, id); err != nil {
				return err
			}
		}
		fmt.Println("Shortlist:", s.candidates.List())
		return nil
	})
}

// CandidatesRemoveCmd drops recipes from the shortlist.
type CandidatesRemoveCmd struct {
	IDs []string `arg:"" help:"Recipe ids."`
}

// Run executes the remove command.
func (c *CandidatesRemoveCmd) Run(e *env) error {
	return withCandidates(e, func(ctx context.Context, s *stack) error {
		for _, id := range c.IDs {
			if err := s.candidates.Remove(ctx, domain.RecipeID(id)); err != nil {
				return err
			}
		}
		fmt.Println("Shortlist:", s.candidates.List())
		return nil
	})
}

// CandidatesClearCmd empties the shortlist.
type CandidatesClearCmd struct{}

// Run executes the clear command.
func (c *CandidatesClearCmd) Run(e *env) error {
	return withCandidates(e, func(ctx context.Context, s *stack) error {
		return s.candidates.Clear(ctx)
	})
}

// withCandidates opens just the store and recipe source for fn.
func withCandidates(e *env, fn func(ctx context.Context, s *stack) error) error {
	ctx := context.Background()
	kv, cands, err := openCandidates(ctx, e.cfg, e.log)
	if err != nil {
		return err
	}
	defer func() {
		cands.Close()
		_ = kv.Close()
	}()
	return fn(ctx, &stack{
		log:        e.log,
		store:      kv,
		candidates: cands,
		recipes:    recipeSource(e.cfg, e.log),
	})
}
