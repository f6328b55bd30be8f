package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hammamikhairi/vibecook/internal/logger"
)

func TestCLINotifierPrintsMessages(t *testing.T) {
	var lines []string
	n := NewCLINotifier(logger.New(logger.LevelOff, nil), func(format string, a ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, a...))
	})

	if err := n.Notify(context.Background(), "Still on step 2"); err != nil {
		t.Fatal(err)
	}
	if err := n.NotifyUrgent(context.Background(), "Voice control is paused"); err != nil {
		t.Fatal(err)
	}

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "Still on step 2") || !strings.Contains(lines[1], "Voice control is paused") {
		t.Errorf("unexpected output: %q", lines)
	}
}
