package telegram

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the Bot API limit for a text message
const MaxMessageLength = 4096

// SplitMessage splits text into chunks of at most maxLen characters,
// breaking on line boundaries where possible. A maxLen of zero or less
// disables splitting.
func SplitMessage(text string, maxLen int) []string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if chunk := strings.Trim(current.String(), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, line := range strings.Split(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if currentLen+lineLen+1 > maxLen {
			flush()
		}

		// A single line longer than the limit is cut hard
		for lineLen > maxLen {
			runes := []rune(line)
			parts = append(parts, string(runes[:maxLen]))
			line = string(runes[maxLen:])
			lineLen -= maxLen
		}

		current.WriteString(line)
		current.WriteString("\n")
		currentLen += lineLen + 1
	}
	flush()

	return parts
}
