package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/hammamikhairi/vibecook/internal/logger"
)

// setupLogger directs logs to path (stderr when path is "" or "stderr")
// so the cooking prompt stays clean. Go's default log package, used by
// third-party libraries like the whisper transcriber, goes to the same
// place.
func setupLogger(path string, level logger.Level) (*logger.Logger, func()) {
	var out io.Writer = os.Stderr
	closeFn := func() {}

	if path != "" && path != "stderr" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		} else {
			out = f
			closeFn = func() { _ = f.Close() }
		}
	}

	stdlog.SetOutput(out)
	stdlog.SetFlags(stdlog.Ltime)

	return logger.New(level, out), closeFn
}
