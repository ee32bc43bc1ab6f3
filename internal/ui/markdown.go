// Package ui provides terminal styling and output helpers for the
// filigree CLI.
package ui

import (
	"charm.land/glamour/v2"
)

// RenderMarkdown renders markdown text using glamour. Returns the
// rendered markdown or the original text if rendering fails. Word wraps
// at terminal width, capped at 100 columns for readability.
func RenderMarkdown(markdown string) string {
	if !ShouldUseColor() {
		return markdown
	}

	const maxReadableWidth = 100
	wrapWidth := GetWidth()
	if wrapWidth > maxReadableWidth {
		wrapWidth = maxReadableWidth
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}
