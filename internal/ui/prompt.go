package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/chris-regnier/calctl/internal/locale"
)

func promptPlaceholder(lang string, due time.Time) string {
	return locale.T(lang, "prompt.placeholder", detailTitle(lang, due))
}

func (m calModel) promptBoxWidth() int {
	w := m.width * 2 / 3
	if w > 60 {
		w = 60
	}
	if w < 20 {
		w = m.width - 2
	}
	if w < 10 {
		w = 10
	}
	return w
}

// promptInputWidth leaves room for the border, padding, prompt glyph and
// cursor cell.
func (m calModel) promptInputWidth() int {
	w := m.promptBoxWidth() - 7
	if w < 1 {
		w = 1
	}
	return w
}

func (m calModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.promptActive = false
		m.promptInput.Blur()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.promptInput.Value())
		m.promptActive = false
		m.promptInput.Blur()
		if text == "" {
			return m, nil
		}
		m.creating = true
		return m, m.createCmd(text, m.promptDue)
	}

	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m calModel) renderPromptBox() string {
	contentW := m.promptBoxWidth() - 4
	input := ansi.Truncate(m.promptInput.View(), contentW, "")
	return m.theme.BorderStyle().Padding(0, 1).Width(contentW + 2).Render(m.padFrag(input, contentW))
}

// overlayPrompt lays the quick-add input over the middle rows of whatever
// screen is behind it.
func (m calModel) overlayPrompt(content string) string {
	box := m.renderPromptBox()
	boxLines := strings.Split(box, "\n")
	lines := strings.Split(content, "\n")

	top := (m.height - len(boxLines)) / 2
	if top < 0 {
		top = 0
	}
	left := (m.width - lipgloss.Width(box)) / 2
	if left < 0 {
		left = 0
	}
	for i, bl := range boxLines {
		row := top + i
		for row >= len(lines) {
			lines = append(lines, "")
		}
		lines[row] = m.bgPad(left) + bl
	}
	return strings.Join(lines, "\n")
}
