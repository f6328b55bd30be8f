package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/hammamikhairi/vibecook/internal/conversation"
	"github.com/hammamikhairi/vibecook/internal/cue"
	"github.com/hammamikhairi/vibecook/internal/display"
	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/engine"
	"github.com/hammamikhairi/vibecook/internal/nudge"
	"github.com/hammamikhairi/vibecook/internal/presenter"
	"github.com/hammamikhairi/vibecook/internal/speech"
)

// CookCmd runs the terminal cooking session.
type CookCmd struct {
	Recipes   string        `help:"Comma-separated recipe ids. Empty cooks the shortlisted candidates." short:"r"`
	Voice     bool          `help:"Listen for spoken commands."`
	Cues      bool          `help:"Play audible cues on step changes." default:"true" negatable:""`
	IdleAfter time.Duration `help:"Remind after this long on one step." default:"5m"`
}

// Run executes the cook command.
func (c *CookCmd) Run(e *env) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s, err := buildStack(ctx, e, c.Voice)
	if err != nil {
		return err
	}
	defer s.Close()

	ui := display.NewUI(s.presenter)
	notifier := conversation.NewCLINotifier(e.log, ui.Printf)

	app := &cookApp{stack: s, ui: ui}
	defer s.orch.Subscribe(app.onEvent)()

	if c.Cues {
		if player, err := cue.NewPlayer(e.log); err != nil {
			e.log.Warn("audio cues disabled: %v", err)
		} else {
			cuer := cue.New(player, e.log)
			defer cuer.Attach(s.orch.Subscribe)()
			go cuer.Run(ctx)
		}
	}

	watcher := nudge.NewWatcher(notifier, e.log, nudge.WithIdleAfter(c.IdleAfter))
	defer s.orch.Subscribe(watcher.OnEvent)()
	go watcher.Run(ctx)

	fmt.Println(display.RenderBanner(display.Tagline(len(presenter.ParseEntry(c.Recipes)))))
	app.greet(c.Voice)

	go func() {
		ui.WaitReady()
		app.open(ctx, presenter.ParseEntry(c.Recipes))
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	if err := ui.Run(); err != nil {
		e.log.Error("display: %v", err)
	}
	cancel()
	return nil
}

type cookApp struct {
	*stack
	ui *display.UI
}

func (a *cookApp) greet(voice bool) {
	hint := func(s string) { fmt.Println(display.BannerStyle.Render("  " + s)) }

	switch kind, ok := a.orch.BackendKind(); {
	case ok && kind == speech.KindStreaming:
		hint(`Voice on: say "next", "back", "repeat" or "stop".`)
	case ok && kind == speech.KindCapture:
		hint(`Voice on: speak a command, then press Enter to send it.`)
	case voice:
		hint(fmt.Sprintf("Voice unavailable (%v). Type commands instead.", a.voiceErr))
	}
	hint(`Type "next", "back", "repeat" or "stop". "help" lists everything.`)
	fmt.Println()
}

func (a *cookApp) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-a.ui.InputChan():
			if !ok {
				return
			}
			if quit := a.handle(ctx, line); quit {
				return
			}
		}
	}
}

// handle runs one input line. It reports whether the app should exit.
func (a *cookApp) handle(ctx context.Context, line string) bool {
	text := strings.TrimSpace(line)
	word, rest, _ := strings.Cut(text, " ")
	word = strings.ToLower(word)
	hasSession := a.closeEnded(ctx)

	switch {
	case text == "":
		if hasSession {
			a.report(a.orch.EndUtterance(ctx))
		}
	case word == "help":
		a.help()
	case word == "recipes":
		a.listRecipes(ctx, strings.TrimSpace(rest))
	case word == "open":
		a.open(ctx, presenter.ParseEntry(strings.ReplaceAll(rest, " ", ",")))
	case word == "candidates":
		a.open(ctx, nil)
	case word == "reset":
		a.report(a.orch.Reset(ctx))
	case word == "status":
		a.ui.PrintStepCard(a.presenter.Snapshot())
	case !hasSession && (word == "quit" || word == "exit"):
		return true
	case !hasSession:
		a.ui.PrintHint(`No recipes open. Type "open garlic-bread,chicken-alfredo" or "recipes".`)
	default:
		a.command(ctx, text)
		a.closeEnded(ctx)
	}
	return false
}

// closeEnded drops a session the cook ended by voice or command, and
// reports whether one is still open.
func (a *cookApp) closeEnded(ctx context.Context) bool {
	if a.presenter.Snapshot().Status != presenter.StatusReady {
		return false
	}
	if a.orch.State() != domain.ListeningIdle {
		return true
	}
	if err := a.presenter.Close(ctx); err != nil {
		a.log.Warn("close ended session: %v", err)
	}
	return false
}

// command feeds text to the orchestrator like a spoken utterance. When
// voice is paused or busy the matched command is applied directly.
func (a *cookApp) command(ctx context.Context, text string) {
	if a.orch.State() == domain.ListeningActive {
		a.report(a.orch.HandleTranscript(ctx, text))
		return
	}
	cmd := a.matcher.Match(text)
	if cmd == domain.CommandUnknown {
		a.ui.PrintHint(fmt.Sprintf(`Didn't catch a command in %q. Try "next", "back", "repeat" or "stop".`, text))
		return
	}
	a.report(a.orch.Apply(ctx, cmd))
}

// open starts a session from ids, or from the candidates when ids is
// empty.
func (a *cookApp) open(ctx context.Context, ids []domain.RecipeID) {
	var err error
	if len(ids) == 0 {
		err = a.presenter.OpenFromCandidates(ctx)
	} else {
		err = a.presenter.Open(ctx, ids)
	}

	v := a.presenter.Snapshot()
	if err != nil {
		a.ui.PrintUrgent(v.Notice)
		return
	}
	if v.Status != presenter.StatusReady {
		a.ui.PrintHint(`Nothing to cook yet. Type "recipes" to browse, then "open <id>,<id>".`)
		return
	}
	a.ui.PrintChat("Cooking " + strings.Join(v.Titles, " + ") + fmt.Sprintf(" (%d steps).", v.Total))
	if v.Notice != "" {
		a.ui.PrintUrgent(v.Notice)
	}
}

func (a *cookApp) listRecipes(ctx context.Context, query string) {
	var (
		list []domain.RecipeSummary
		err  error
	)
	if query != "" {
		list, err = a.recipes.Search(ctx, query)
	} else {
		list, err = a.recipes.List(ctx)
	}
	if err != nil {
		a.ui.PrintUrgent(err.Error())
		return
	}
	if len(list) == 0 {
		a.ui.PrintHint("No recipes found.")
		return
	}
	for _, r := range list {
		a.ui.PrintChat(fmt.Sprintf("%-22s %s", r.ID, r.Name))
	}
}

func (a *cookApp) help() {
	for _, l := range []string{
		`next / back / repeat     move through the steps (or say them)`,
		`stop                     end the cooking session`,
		`open <id>,<id>           cook these recipes together`,
		`candidates               cook the shortlisted recipes`,
		`recipes [query]          browse recipes`,
		`status                   show the current step again`,
		`reset                    listen again after a microphone error`,
		`<Enter>                  send what you said (record-and-send voice)`,
		`quit                     leave (when no session is open)`,
	} {
		a.ui.PrintHint(l)
	}
}

// report prints what went wrong, preferring the presenter's wording.
func (a *cookApp) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidTransition):
		a.ui.PrintHint(fmt.Sprintf("Not now: currently %s.", a.orch.State()))
	case errors.Is(err, domain.ErrNoSession):
		a.ui.PrintHint("No cooking session is open.")
	default:
		if n := a.presenter.Snapshot().Notice; n != "" {
			a.ui.PrintUrgent(n)
			return
		}
		a.ui.PrintUrgent(err.Error())
	}
}

// onEvent prints what the orchestrator did. The presenter subscribed
// first, so its view already reflects ev.
func (a *cookApp) onEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EventStepChanged:
		a.ui.PrintStepCard(a.presenter.Snapshot())
	case engine.EventUnrecognized, engine.EventSessionCompleted, engine.EventSessionEnded:
		a.ui.PrintChat(a.presenter.Snapshot().Notice)
	case engine.EventError:
		a.ui.PrintUrgent(a.presenter.Snapshot().Notice)
	}
}
