package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"off", LevelOff},
		{"quiet", LevelOff},
		{"info", LevelNormal},
		{"", LevelNormal},
		{"DEBUG", LevelVerbose},
		{"verbose", LevelVerbose},
		{"nonsense", LevelNormal},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Fatalf("ParseLevel(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevelsFilterOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelNormal, &buf)

	log.Debug("hidden %d", 1)
	log.Info("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at normal level: %q", out)
	}
	if !strings.Contains(out, "[INF]") || !strings.Contains(out, "shown 2") {
		t.Fatalf("expected info line, got %q", out)
	}

	buf.Reset()
	log.SetLevel(LevelOff)
	log.Error("silenced")
	if buf.Len() != 0 {
		t.Fatalf("expected no output when off, got %q", buf.String())
	}
}

func TestNamedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelNormal, &buf)
	child := log.Named("candidate").Named("sync")

	child.Info("hello")
	if !strings.Contains(buf.String(), "candidate/sync: hello") {
		t.Fatalf("expected component prefix, got %q", buf.String())
	}

	buf.Reset()
	log.SetLevel(LevelOff)
	child.Warn("quiet now")
	if buf.Len() != 0 {
		t.Fatalf("child ignored parent level change: %q", buf.String())
	}
}
