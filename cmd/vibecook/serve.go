package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hammamikhairi/vibecook/internal/server"
)

// ServeCmd runs the HTTP API.
type ServeCmd struct {
	Port  string `help:"Port to listen on. Overrides VIBECOOK_PORT."`
	Voice bool   `help:"Listen for spoken commands on this machine's microphone."`
}

// Run executes the serve command.
func (c *ServeCmd) Run(e *env) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if c.Port != "" {
		e.cfg.Port = c.Port
	}

	s, err := buildStack(ctx, e, c.Voice)
	if err != nil {
		return err
	}
	defer s.Close()

	e.log.Info("starting vibecook server (env=%s, port=%s, recipes=%s)", e.cfg.Env, e.cfg.Port, recipeOrigin(e.cfg.RecipeAPI))

	srv, err := server.New(e.cfg, server.Deps{
		Recipes:    s.recipes,
		Candidates: s.candidates,
		Session:    s.presenter,
		Controller: s.orch,
	}, e.log)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func recipeOrigin(api string) string {
	if api == "" {
		return "built-in"
	}
	return api
}
