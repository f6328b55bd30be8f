package domain

// SessionStep is one instruction of a composed session, tagged with the
// recipe it came from.
type SessionStep struct {
	RecipeID    RecipeID `json:"recipe_id"`
	RecipeTitle string   `json:"recipe_title"`
	Step        Step     `json:"step"`
}

// RecipeBoundary marks where a recipe's steps sit in the composed timeline.
type RecipeBoundary struct {
	RecipeID RecipeID `json:"recipe_id"`
	Title    string   `json:"title"`
	Start    int      `json:"start"`
	Count    int      `json:"count"`
}

// ComposedSession is the merged instruction timeline built from one or more
// recipes. Only the current step index and the completed flag change after
// composition.
type ComposedSession struct {
	Steps            []SessionStep `json:"steps"`
	CurrentStepIndex int           `json:"current_step_index"`
	Completed        bool          `json:"completed"`
}

// TotalSteps returns the number of steps in the session.
func (s *ComposedSession) TotalSteps() int {
	return len(s.Steps)
}

// CurrentStep returns the step at the current index, or nil for an empty
// session.
func (s *ComposedSession) CurrentStep() *SessionStep {
	if s.CurrentStepIndex < 0 || s.CurrentStepIndex >= len(s.Steps) {
		return nil
	}
	return &s.Steps[s.CurrentStepIndex]
}

// CurrentRecipeID returns the recipe owning the current step.
func (s *ComposedSession) CurrentRecipeID() RecipeID {
	if step := s.CurrentStep(); step != nil {
		return step.RecipeID
	}
	return ""
}

// IsLastStep reports whether the current step is the final one.
func (s *ComposedSession) IsLastStep() bool {
	return s.CurrentStepIndex == len(s.Steps)-1
}

// SetCurrentStep moves to idx clamped to [0, TotalSteps-1] and returns the
// index actually applied.
func (s *ComposedSession) SetCurrentStep(idx int) int {
	if idx >= len(s.Steps) {
		idx = len(s.Steps) - 1
	}
	if idx < 0 {
		idx = 0
	}
	s.CurrentStepIndex = idx
	return idx
}

// MarkCompleted flags that the cook advanced past the last step.
func (s *ComposedSession) MarkCompleted() {
	s.Completed = true
}

// Boundaries returns each recipe's span in composition order.
func (s *ComposedSession) Boundaries() []RecipeBoundary {
	var out []RecipeBoundary
	for i, st := range s.Steps {
		if n := len(out); n > 0 && out[n-1].RecipeID == st.RecipeID {
			out[n-1].Count++
			continue
		}
		out = append(out, RecipeBoundary{
			RecipeID: st.RecipeID,
			Title:    st.RecipeTitle,
			Start:    i,
			Count:    1,
		})
	}
	return out
}

// RecipeTitles returns the recipe titles in composition order.
func (s *ComposedSession) RecipeTitles() []string {
	bounds := s.Boundaries()
	titles := make([]string, 0, len(bounds))
	for _, b := range bounds {
		titles = append(titles, b.Title)
	}
	return titles
}

// PositionInRecipe returns the 1-based position of the current step within
// its own recipe and that recipe's step count.
func (s *ComposedSession) PositionInRecipe() (pos, count int) {
	for _, b := range s.Boundaries() {
		if s.CurrentStepIndex >= b.Start && s.CurrentStepIndex < b.Start+b.Count {
			return s.CurrentStepIndex - b.Start + 1, b.Count
		}
	}
	return 0, 0
}

// ListeningState is the voice orchestrator's lifecycle state.
type ListeningState int

const (
	ListeningIdle ListeningState = iota
	ListeningActive
	ListeningProcessing
	ListeningError
)

// String returns a human-readable listening state.
func (s ListeningState) String() string {
	switch s {
	case ListeningIdle:
		return "idle"
	case ListeningActive:
		return "listening"
	case ListeningProcessing:
		return "processing"
	case ListeningError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s ListeningState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RecognitionResult is one transcript delivered by a speech backend.
// Interim results are advisory; only final results drive navigation.
type RecognitionResult struct {
	Transcript string
	Final      bool
	Confidence float64
}
