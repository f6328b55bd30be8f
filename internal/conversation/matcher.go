// Package conversation turns spoken or typed phrases into cooking
// commands and delivers user-facing notices.
package conversation

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// Vocabulary lists the phrases that trigger each command. A phrase
// matches when it appears as whole words anywhere in the transcript.
type Vocabulary struct {
	Advance  []string `toml:"advance"`
	Previous []string `toml:"previous"`
	Repeat   []string `toml:"repeat"`
	End      []string `toml:"end"`
}

// DefaultVocabulary is used when no vocabulary file is configured.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Advance: []string{
			"next", "next step", "continue", "done", "advance", "go on",
			"move on", "what's next", "what now", "keep going", "forward",
		},
		Previous: []string{
			"previous", "previous step", "back", "go back", "last step",
			"step back", "before that",
		},
		Repeat: []string{
			"repeat", "again", "say again", "say that again", "come again",
			"one more time", "what was that", "pardon",
		},
		End: []string{
			"stop", "stop cooking", "end", "end session", "quit", "exit",
			"finish", "i'm done cooking", "we're done",
		},
	}
}

// LoadVocabulary reads a TOML vocabulary file. Commands missing from the
// file keep their default phrases.
func LoadVocabulary(path string) (Vocabulary, error) {
	v := DefaultVocabulary()
	if path == "" {
		return v, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("read vocabulary %s: %w", path, err)
	}

	var file Vocabulary
	if err := toml.Unmarshal(data, &file); err != nil {
		return v, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}

	if len(file.Advance) > 0 {
		v.Advance = file.Advance
	}
	if len(file.Previous) > 0 {
		v.Previous = file.Previous
	}
	if len(file.Repeat) > 0 {
		v.Repeat = file.Repeat
	}
	if len(file.End) > 0 {
		v.End = file.End
	}
	return v, nil
}

// CommandMatcher maps transcripts to commands using a Vocabulary.
type CommandMatcher struct {
	log   *logger.Logger
	rules []phraseRule
}

type phraseRule struct {
	phrase string
	regex  *regexp.Regexp
	cmd    domain.Command
}

// NewCommandMatcher compiles the vocabulary. It fails when a phrase is
// empty after normalisation.
func NewCommandMatcher(v Vocabulary, log *logger.Logger) (*CommandMatcher, error) {
	m := &CommandMatcher{log: log}

	// Earlier groups win ties between equally long phrases.
	groups := []struct {
		cmd     domain.Command
		phrases []string
	}{
		{domain.CommandEnd, v.End},
		{domain.CommandPrevious, v.Previous},
		{domain.CommandRepeat, v.Repeat},
		{domain.CommandAdvance, v.Advance},
	}

	// normalize leaves single spaces between tokens, so spaces mark word
	// edges for any script. \b only knows ASCII word characters.
	var errs []error
	for _, g := range groups {
		for _, p := range g.phrases {
			norm := normalize(p)
			if norm == "" {
				errs = append(errs, fmt.Errorf("%s: empty phrase %q", g.cmd, p))
				continue
			}
			m.rules = append(m.rules, phraseRule{
				phrase: norm,
				regex:  regexp.MustCompile(`(?:^| )` + regexp.QuoteMeta(norm) + `(?: |$)`),
				cmd:    g.cmd,
			})
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid vocabulary: %w", err)
	}
	return m, nil
}

// MustDefaultMatcher builds a matcher over DefaultVocabulary.
func MustDefaultMatcher(log *logger.Logger) *CommandMatcher {
	m, err := NewCommandMatcher(DefaultVocabulary(), log)
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns the command for a transcript, or CommandUnknown. When
// several phrases match, the longest one wins. Ties go to end, then
// previous, then repeat, then advance.
func (m *CommandMatcher) Match(transcript string) domain.Command {
	text := normalize(transcript)
	if text == "" {
		return domain.CommandUnknown
	}

	best := domain.CommandUnknown
	bestLen := 0
	for _, r := range m.rules {
		if len(r.phrase) <= bestLen {
			continue
		}
		if r.regex.MatchString(text) {
			best, bestLen = r.cmd, len(r.phrase)
		}
	}

	m.log.Debug("matched %q -> %s", text, best)
	return best
}

// normalize lowercases, folds curly apostrophes and replaces other
// punctuation with spaces.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
