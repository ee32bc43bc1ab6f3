// Package ui provides terminal styling and output helpers for the
// filigree CLI.
package ui

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Default truncation settings
const (
	DefaultMaxLines     = 15 // max lines for description display
	DefaultContextLines = 5  // lines kept at each end when truncating
)

// TruncateLines truncates text to maxLines, keeping contextLines at the
// beginning and end with a hidden-line marker in the middle. Text with
// fewer lines than maxLines is returned unchanged.
func TruncateLines(text string, maxLines, contextLines int) string {
	if text == "" {
		return text
	}

	lines := strings.Split(text, "\n")
	total := len(lines)
	if total <= maxLines {
		return text
	}

	if contextLines < 1 {
		contextLines = DefaultContextLines
	}
	// Too small to show both ends: plain head truncation.
	if maxLines < contextLines*2+3 {
		return strings.Join(lines[:maxLines], "\n") + "\n..."
	}

	hidden := total - contextLines*2
	var b strings.Builder
	b.WriteString(strings.Join(lines[:contextLines], "\n"))
	b.WriteString("\n")
	b.WriteString(RenderMuted("... (" + strconv.Itoa(hidden) + " lines hidden, use --full to see all) ..."))
	b.WriteString("\n")
	b.WriteString(strings.Join(lines[total-contextLines:], "\n"))
	return b.String()
}

// TruncateSimple performs simple end truncation with "..." suffix.
// UTF-8 safe.
func TruncateSimple(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(text)
	return string(runes[:maxLen-3]) + "..."
}

// WrapText wraps text at word boundaries to fit within maxWidth.
// Preserves existing line breaks.
func WrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = 80
	}

	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(wrapLine(line, maxWidth))
	}
	return b.String()
}

func wrapLine(line string, maxWidth int) string {
	if utf8.RuneCountInString(line) <= maxWidth {
		return line
	}

	var b strings.Builder
	width := 0
	for _, word := range strings.Fields(line) {
		wordLen := utf8.RuneCountInString(word)
		switch {
		case width == 0:
			b.WriteString(word)
			width = wordLen
		case width+1+wordLen <= maxWidth:
			b.WriteString(" ")
			b.WriteString(word)
			width += 1 + wordLen
		default:
			b.WriteString("\n")
			b.WriteString(word)
			width = wordLen
		}
	}
	return b.String()
}
