package speech

import (
	"regexp"
	"strings"
)

// envAnnotation matches whisper environmental annotations like
// "(keyboard clicking)", "[laughter]" or "(speaking French)".
var envAnnotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z_\s]*[\)\]]`)

// timestampPrefix matches "[00:00:00.000 --> 00:00:05.000]".
var timestampPrefix = regexp.MustCompile(`^\[[0-9:.]+\s*-->\s*[0-9:.]+\]`)

var whitespace = regexp.MustCompile(`\s+`)

// Phrases whisper invents on silent or noisy audio. A transcript that is
// only one of these is dropped.
var hallucinations = []string{
	"...",
	"you",
	"thank you.",
	"thanks for watching!",
	"thank you for watching.",
	"bye.",
	"bye!",
	"the end.",
	"sous-titres réalisés para la communauté d'amara.org",
}

// Clean normalises a raw transcript: it strips timestamps, annotations
// such as "[BLANK_AUDIO]" or "(music)", collapses whitespace and drops
// known hallucinations. It returns "" when nothing meaningful is left.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = timestampPrefix.ReplaceAllString(s, "")
	s = envAnnotation.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if lower == h {
			return ""
		}
	}
	return s
}
