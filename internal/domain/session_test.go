package domain

import (
	"errors"
	"testing"
)

func twoRecipeSession() *ComposedSession {
	steps := []SessionStep{
		{RecipeID: "a", RecipeTitle: "A", Step: Step{Title: "a1"}},
		{RecipeID: "a", RecipeTitle: "A", Step: Step{Title: "a2"}},
		{RecipeID: "b", RecipeTitle: "B", Step: Step{Title: "b1"}},
		{RecipeID: "b", RecipeTitle: "B", Step: Step{Title: "b2"}},
		{RecipeID: "b", RecipeTitle: "B", Step: Step{Title: "b3"}},
	}
	return &ComposedSession{Steps: steps}
}

func TestSetCurrentStepClamps(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, 0},
		{0, 0},
		{2, 2},
		{4, 4},
		{99, 4},
	}
	for _, tt := range tests {
		s := twoRecipeSession()
		if got := s.SetCurrentStep(tt.in); got != tt.want || s.CurrentStepIndex != tt.want {
			t.Errorf("SetCurrentStep(%d) = %d (index %d), want %d", tt.in, got, s.CurrentStepIndex, tt.want)
		}
	}
}

func TestBoundariesAndPosition(t *testing.T) {
	s := twoRecipeSession()

	bounds := s.Boundaries()
	if len(bounds) != 2 {
		t.Fatalf("got %d boundaries, want 2", len(bounds))
	}
	if bounds[1] != (RecipeBoundary{RecipeID: "b", Title: "B", Start: 2, Count: 3}) {
		t.Errorf("second boundary = %+v", bounds[1])
	}

	tests := []struct {
		idx, pos, count int
		recipe          RecipeID
	}{
		{0, 1, 2, "a"},
		{1, 2, 2, "a"},
		{2, 1, 3, "b"},
		{4, 3, 3, "b"},
	}
	for _, tt := range tests {
		s.SetCurrentStep(tt.idx)
		pos, count := s.PositionInRecipe()
		if pos != tt.pos || count != tt.count {
			t.Errorf("index %d: position %d/%d, want %d/%d", tt.idx, pos, count, tt.pos, tt.count)
		}
		if got := s.CurrentRecipeID(); got != tt.recipe {
			t.Errorf("index %d: recipe %q, want %q", tt.idx, got, tt.recipe)
		}
	}
	if !s.IsLastStep() {
		t.Error("index 4 should be the last step")
	}
}

func TestEmptySession(t *testing.T) {
	s := &ComposedSession{}
	if s.CurrentStep() != nil {
		t.Error("empty session has no current step")
	}
	if s.CurrentRecipeID() != "" {
		t.Error("empty session has no recipe")
	}
	if pos, count := s.PositionInRecipe(); pos != 0 || count != 0 {
		t.Errorf("position = %d/%d, want 0/0", pos, count)
	}
	if len(s.RecipeTitles()) != 0 {
		t.Error("empty session has no titles")
	}
}

func TestNewCaptureErrorClassifies(t *testing.T) {
	tests := []struct {
		err  error
		want CaptureReason
	}{
		{ErrPermissionDenied, CapturePermissionDenied},
		{ErrCapabilityUnavailable, CaptureUnavailable},
		{errors.New("device unplugged"), CaptureDevice},
		{&CaptureError{Reason: CaptureUnavailable}, CaptureUnavailable},
	}
	for _, tt := range tests {
		if got := NewCaptureError(tt.err).Reason; got != tt.want {
			t.Errorf("NewCaptureError(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestRecipeNotFoundUnwraps(t *testing.T) {
	cause := errors.New("timeout")
	err := error(&RecipeNotFoundError{ID: "x", Err: cause})
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, cause) {
		t.Errorf("%v should match ErrNotFound and its cause", err)
	}
}

func TestCommandFromString(t *testing.T) {
	for name, want := range map[string]Command{
		"next": CommandAdvance, "advance": CommandAdvance, "back": CommandPrevious,
		"repeat": CommandRepeat, "stop": CommandEnd, "dance": CommandUnknown,
	} {
		if got := CommandFromString(name); got != want {
			t.Errorf("CommandFromString(%q) = %s, want %s", name, got, want)
		}
	}
}
