package main

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/vibecook/internal/candidate"
	"github.com/hammamikhairi/vibecook/internal/config"
	"github.com/hammamikhairi/vibecook/internal/conversation"
	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/engine"
	"github.com/hammamikhairi/vibecook/internal/logger"
	"github.com/hammamikhairi/vibecook/internal/presenter"
	"github.com/hammamikhairi/vibecook/internal/recipe"
	"github.com/hammamikhairi/vibecook/internal/speech"
	"github.com/hammamikhairi/vibecook/internal/storage"
)

// stack is the wired application shared by cook and serve.
type stack struct {
	log        *logger.Logger
	store      *storage.SQLiteStore
	candidates *candidate.Store
	recipes    domain.RecipeSource
	matcher    *conversation.CommandMatcher
	orch       *engine.Orchestrator
	presenter  *presenter.Presenter
	// voiceErr explains why voice was requested but is unavailable.
	voiceErr error
}

// openCandidates opens the durable store and the selection on top of it.
func openCandidates(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage.SQLiteStore, *candidate.Store, error) {
	kv, err := storage.OpenSQLite(cfg.StorePath, log.Named("storage"))
	if err != nil {
		return nil, nil, err
	}
	cands, err := candidate.New(ctx, kv, log.Named("candidates"), candidate.WithMaxSize(cfg.MaxCandidates))
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}
	return kv, cands, nil
}

// recipeSource picks the recipe API when configured, else the built-in
// recipes.
func recipeSource(cfg *config.Config, log *logger.Logger) domain.RecipeSource {
	if cfg.RecipeAPI != "" {
		log.Info("recipes: using API at %s", cfg.RecipeAPI)
		return recipe.NewHTTPSource(cfg.RecipeAPI, log.Named("recipes"))
	}
	return recipe.NewMemorySource(log.Named("recipes"))
}

// probeSpeech reports what this machine can do for voice input.
func probeSpeech(cfg *config.Config, log *logger.Logger) speech.Capabilities {
	var probe speech.Capabilities

	live := speech.NewWhisperRecognizer(cfg.WhisperBin, cfg.WhisperModel, log,
		speech.WithChunkDuration(cfg.ChunkDuration),
		speech.WithListenTimeout(cfg.ListenTimeout),
	)
	if live.Available() {
		probe.Live = live
		return probe
	}

	if !speech.ProbeMic() {
		log.Info("speech: no capture device found")
		return probe
	}
	probe.Mic = speech.NewMicSource(log)

	if cfg.OpenAIAPIKey == "" {
		log.Info("speech: set %s_OPENAI_API_KEY to transcribe recorded utterances", config.Prefix)
		return probe
	}
	tr, err := speech.NewWhisperAPI(cfg.OpenAIAPIKey, log)
	if err != nil {
		log.Warn("speech: %v", err)
		return probe
	}
	probe.Transcriber = tr
	return probe
}

func buildStack(ctx context.Context, e *env, voice bool) (*stack, error) {
	cfg, log := e.cfg, e.log

	kv, cands, err := openCandidates(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	vocab, err := conversation.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	matcher, err := conversation.NewCommandMatcher(vocab, log.Named("matcher"))
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("vocabulary: %w", err)
	}

	s := &stack{
		log:        log,
		store:      kv,
		candidates: cands,
		recipes:    recipeSource(cfg, log),
		matcher:    matcher,
	}

	var opts []engine.Option
	if voice {
		backend, err := speech.NewBackend(probeSpeech(cfg, log), log)
		if err != nil {
			log.Warn("voice requested but unavailable: %v", err)
			s.voiceErr = err
		} else {
			opts = append(opts, engine.WithBackend(backend))
		}
	}

	s.orch = engine.New(matcher, log, opts...)
	s.presenter = presenter.New(s.recipes, s.orch, log, presenter.WithCandidates(cands))
	return s, nil
}

func (s *stack) Close() error {
	s.presenter.Detach()
	s.candidates.Close()
	if err := s.orch.Cancel(context.Background()); err != nil {
		s.log.Warn("close: %v", err)
	}
	return s.store.Close()
}
