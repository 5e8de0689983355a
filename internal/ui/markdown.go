package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer is a cached glamour renderer instance, keyed by the
// (width, style) pair it was built with. Popup redraws at a stable size
// reuse it instead of paying renderer construction per frame.
var (
	markdownRenderer *glamour.TermRenderer
	cachedWidth      int
	cachedStyle      string
)

// ensureMarkdownRenderer rebuilds the glamour renderer when width or style
// changed since the last call.
func ensureMarkdownRenderer(width int, style string) error {
	if width < 1 {
		width = 80
	}
	if style == "" {
		style = "dark"
	}
	if markdownRenderer != nil && width == cachedWidth && style == cachedStyle {
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return err
	}

	markdownRenderer = renderer
	cachedWidth = width
	cachedStyle = style
	return nil
}

// RenderMarkdownWithStyle renders markdown content using the given glamour
// style. Returns the original content verbatim when rendering fails; callers
// treat that as the signal to assemble their own fallback view.
func RenderMarkdownWithStyle(content string, width int, style string) string {
	if content == "" {
		return ""
	}
	if err := ensureMarkdownRenderer(width, style); err != nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// RenderMarkdown renders markdown content to a rich text string suitable for
// terminal display, using the "dark" style.
func RenderMarkdown(content string, width int) string {
	return RenderMarkdownWithStyle(content, width, "dark")
}
