// Package transcript normalizes raw speech-engine output into plain text.
package transcript

import (
	"regexp"
	"strings"
)

var (
	// Timestamp ranges as whisper prints them: [00:00:00.000 --> 00:00:02.000]
	timestampPattern = regexp.MustCompile(`\[[\d:.\s>-]+\]`)

	// Non-speech annotations such as (music), (applause), (笑).
	annotationPattern = regexp.MustCompile(`\([^)]*\)`)
)

// Clean strips engine artifacts from raw transcript text: timestamp-range
// markers, parenthetical sound annotations, and excess whitespace. It is total
// over any input and idempotent.
func Clean(raw string) string {
	text := timestampPattern.ReplaceAllString(raw, "")
	text = annotationPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

const blankAudioToken = "[BLANK_AUDIO]"

// IsBlank reports whether a transcript carries no usable speech.
func IsBlank(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	return strings.EqualFold(trimmed, blankAudioToken)
}
