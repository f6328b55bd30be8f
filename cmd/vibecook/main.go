// Vibecook is a hands-free, step-by-step cooking assistant for one or
// more recipes at once.
//
// Usage:
//
//	vibecook cook --recipes garlic-bread,chicken-alfredo [--voice]
//	vibecook serve
//	vibecook candidates list|add|remove|clear
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/hammamikhairi/vibecook/internal/config"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// CLI defines the command structure.
type CLI struct {
	Verbose bool   `help:"Enable debug logging." short:"v"`
	Quiet   bool   `help:"Disable all logging." short:"q"`
	LogFile string `help:"File to write logs to (\"stderr\" logs to the console). Overrides VIBECOOK_LOG_FILE."`

	Cook       CookCmd       `cmd:"" default:"withargs" help:"Cook in the terminal, step by step."`
	Serve      ServeCmd      `cmd:"" help:"Serve the recipe, candidate and cooking API over HTTP."`
	Candidates CandidatesCmd `cmd:"" help:"Manage the recipes shortlisted for vibe cooking."`
	Devices    DevicesCmd    `cmd:"" help:"List microphones and the speech backend that would be used."`
}

// env is what every command receives.
type env struct {
	cfg *config.Config
	log *logger.Logger
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("vibecook"),
		kong.Description("Vibe cooking: follow several recipes at once, hands-free."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if cli.LogFile != "" {
		cfg.LogFile = cli.LogFile
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if cli.Verbose {
		level = logger.LevelVerbose
	}
	if cli.Quiet {
		level = logger.LevelOff
	}

	log, closeLog := setupLogger(cfg.LogFile, level)
	err = kctx.Run(&env{cfg: cfg, log: log})
	closeLog()
	kctx.FatalIfErrorf(err)
}
