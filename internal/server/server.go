// Package server exposes recipes, the candidate selection and the cooking
// session over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/vibecook/internal/config"
	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
	"github.com/hammamikhairi/vibecook/internal/presenter"
)

// Candidates is the selection the server edits.
type Candidates interface {
	List() []domain.RecipeID
	MaxSize() int
	Add(ctx context.Context, id domain.RecipeID) error
	Remove(ctx context.Context, id domain.RecipeID) error
	Clear(ctx context.Context) error
	Resync(ctx context.Context) error
}

// Session opens and closes cooking sessions and renders them.
type Session interface {
	Open(ctx context.Context, ids []domain.RecipeID) error
	OpenFromCandidates(ctx context.Context) error
	Close(ctx context.Context) error
	Snapshot() presenter.View
}

// Controller drives the open session.
type Controller interface {
	HandleTranscript(ctx context.Context, text string) error
	Apply(ctx context.Context, cmd domain.Command) error
	EndUtterance(ctx context.Context) error
	Reset(ctx context.Context) error
}

// Deps are the components behind the routes.
type Deps struct {
	Recipes    domain.RecipeSource
	Candidates Candidates
	Session    Session
	Controller Controller
}

// Server represents the HTTP server.
type Server struct {
	config *config.Config
	log    *logger.Logger
	router *gin.Engine
	deps   Deps
}

// New creates a new Server instance.
func New(cfg *config.Config, deps Deps, log *logger.Logger) (*Server, error) {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	log.Debug("server: trusted proxies %v", cfg.TrustedProxies)

	s := &Server{
		config: cfg,
		log:    log,
		router: router,
		deps:   deps,
	}

	setupSecurityMiddleware(router, cfg, log)
	s.setupRoutes()

	return s, nil
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server: listening on :%s", s.config.Port)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("server: shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/recipes", s.handleListRecipes)
		api.GET("/recipes/:id", s.handleGetRecipe)
		api.GET("/categories", s.handleCategories)

		api.GET("/candidates", s.handleListCandidates)
		api.POST("/candidates/resync", s.handleResyncCandidates)
		api.POST("/candidates/:id", s.handleAddCandidate)
		api.DELETE("/candidates/:id", s.handleRemoveCandidate)
		api.DELETE("/candidates", s.handleClearCandidates)

		cooking := api.Group("/cooking")
		cooking.POST("", s.handleOpenSession)
		cooking.GET("", s.handleView)
		cooking.DELETE("", s.handleCloseSession)
		cooking.POST("/transcript", s.handleTranscript)
		cooking.POST("/commands/:command", s.handleCommand)
		cooking.POST("/utterance/end", s.handleEndUtterance)
		cooking.POST("/reset", s.handleReset)
	}
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "vibecook",
	})
}
