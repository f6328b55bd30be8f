package presenter

import "github.com/hammamikhairi/vibecook/internal/domain"

// View is everything a screen needs to render the cooking session.
type View struct {
	SessionID string                `json:"session_id,omitempty"`
	Status    Status                `json:"status"`
	Loading   bool                  `json:"loading"`
	Titles    []string              `json:"titles"`
	Current   *CurrentStep          `json:"current,omitempty"`
	Total     int                   `json:"total"`
	Listening domain.ListeningState `json:"listening"`
	Completed bool                  `json:"completed"`
	Notice    string                `json:"notice,omitempty"`
	Interim   string                `json:"interim,omitempty"`
	// LastCommand is the most recent navigation command, for cues.
	LastCommand string `json:"last_command,omitempty"`
}

// CurrentStep is the step on screen and where it sits.
type CurrentStep struct {
	Index       int             `json:"index"`
	RecipeID    domain.RecipeID `json:"recipe_id"`
	RecipeTitle string          `json:"recipe_title"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url,omitempty"`
	// Position and RecipeSteps locate the step within its own recipe.
	Position    int `json:"position"`
	RecipeSteps int `json:"recipe_steps"`
}

// Snapshot returns the current view.
func (p *Presenter) Snapshot() View {
	p.mu.Lock()
	v := View{
		SessionID: p.sessionID,
		Status:    p.status,
		Loading:   p.loading,
		Titles:    append([]string{}, p.titles...),
		Notice:    p.notice,
		Interim:   p.interim,
	}
	if p.last != domain.CommandUnknown {
		v.LastCommand = p.last.String()
	}
	ready := p.status == StatusReady
	p.mu.Unlock()

	v.Listening = p.orch.State()
	if !ready {
		return v
	}

	s := p.orch.Session()
	if s == nil {
		return v
	}
	v.Total = s.TotalSteps()
	v.Completed = s.Completed
	if step := s.CurrentStep(); step != nil {
		pos, count := s.PositionInRecipe()
		v.Current = &CurrentStep{
			Index:       s.CurrentStepIndex,
			RecipeID:    step.RecipeID,
			RecipeTitle: step.RecipeTitle,
			Title:       step.Step.Title,
			Description: step.Step.Description,
			ImageURL:    step.Step.ImageURL,
			Position:    pos,
			RecipeSteps: count,
		}
	}
	return v
}
