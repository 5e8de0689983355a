package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// stripANSI drops styling and erase sequences so assertions can match the
// plain text of rendered screens.
func stripANSI(s string) string {
	return ansi.Strip(s)
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
