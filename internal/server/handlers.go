package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/presenter"
)

// ── Recipes ──────────────────────────────────────────────────────

func (s *Server) handleListRecipes(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		list []domain.RecipeSummary
		err  error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		list, err = s.deps.Recipes.Search(ctx, q)
	} else {
		list, err = s.deps.Recipes.List(ctx)
	}
	if err != nil {
		s.abort(c, err)
		return
	}
	if list == nil {
		list = []domain.RecipeSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"recipes": list})
}

func (s *Server) handleGetRecipe(c *gin.Context) {
	r, err := s.deps.Recipes.Get(c.Request.Context(), domain.RecipeID(c.Param("id")))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleCategories(c *gin.Context) {
	cats, err := s.deps.Recipes.Categories(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

// ── Candidates ───────────────────────────────────────────────────

func (s *Server) handleListCandidates(c *gin.Context) {
	s.candidates(c, nil)
}

func (s *Server) handleAddCandidate(c *gin.Context) {
	id := domain.RecipeID(strings.TrimSpace(c.Param("id")))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipe id is required"})
		return
	}
	s.candidates(c, s.deps.Candidates.Add(c.Request.Context(), id))
}

func (s *Server) handleRemoveCandidate(c *gin.Context) {
	id := domain.RecipeID(c.Param("id"))
	s.candidates(c, s.deps.Candidates.Remove(c.Request.Context(), id))
}

func (s *Server) handleClearCandidates(c *gin.Context) {
	s.candidates(c, s.deps.Candidates.Clear(c.Request.Context()))
}

func (s *Server) handleResyncCandidates(c *gin.Context) {
	s.candidates(c, s.deps.Candidates.Resync(c.Request.Context()))
}

// candidates answers with the selection as it now stands. A persistence
// failure still reports the in-memory list next to the error.
func (s *Server) candidates(c *gin.Context, err error) {
	ids := s.deps.Candidates.List()
	body := gin.H{
		"candidates": ids,
		"max":        s.deps.Candidates.MaxSize(),
		"full":       len(ids) >= s.deps.Candidates.MaxSize(),
	}
	if err != nil {
		_ = c.Error(err)
		body["error"] = err.Error()
		c.JSON(statusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// ── Cooking session ──────────────────────────────────────────────

func (s *Server) handleOpenSession(c *gin.Context) {
	ctx := c.Request.Context()

	var err error
	if ids := presenter.ParseEntry(c.Query("recipes")); len(ids) > 0 {
		err = s.deps.Session.Open(ctx, ids)
	} else {
		err = s.deps.Session.OpenFromCandidates(ctx)
	}
	s.view(c, err)
}

func (s *Server) handleView(c *gin.Context) {
	s.view(c, nil)
}

func (s *Server) handleCloseSession(c *gin.Context) {
	s.view(c, s.deps.Session.Close(c.Request.Context()))
}

type transcriptRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleTranscript(c *gin.Context) {
	var req transcriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"text\": \"...\"}"})
		return
	}
	s.view(c, s.deps.Controller.HandleTranscript(c.Request.Context(), req.Text))
}

func (s *Server) handleCommand(c *gin.Context) {
	name := strings.ToLower(c.Param("command"))
	cmd := domain.CommandFromString(name)
	if cmd == domain.CommandUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown command " + name})
		return
	}
	s.view(c, s.deps.Controller.Apply(c.Request.Context(), cmd))
}

func (s *Server) handleEndUtterance(c *gin.Context) {
	s.view(c, s.deps.Controller.EndUtterance(c.Request.Context()))
}

func (s *Server) handleReset(c *gin.Context) {
	s.view(c, s.deps.Controller.Reset(c.Request.Context()))
}

// view answers with the rendered session, plus the error when there is one.
func (s *Server) view(c *gin.Context, err error) {
	v := s.deps.Session.Snapshot()
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "view": v})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": v})
}

// ── Errors ───────────────────────────────────────────────────────

func (s *Server) abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// statusFor maps domain error kinds to HTTP status codes.
func statusFor(err error) int {
	var (
		pe *domain.PersistenceError
		ce *domain.CaptureError
		te *domain.TranscriptionError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &pe):
		return http.StatusInsufficientStorage
	case errors.As(err, &ce):
		return http.StatusServiceUnavailable
	case errors.As(err, &te):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
