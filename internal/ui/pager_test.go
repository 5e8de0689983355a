package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestPagerViewPreservesContent(t *testing.T) {
	m := pagerModel{content: "row one\nrow two\nrow three"}

	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = sized.(pagerModel)

	output := stripANSI(m.View())
	if !strings.Contains(output, "row two") {
		t.Error("expected pager content in output")
	}
	if !strings.Contains(output, "scroll") {
		t.Error("expected footer help text in output")
	}
}

func TestPagerNotReadyBeforeSize(t *testing.T) {
	m := pagerModel{content: "anything"}
	if got := m.View(); got != "Loading..." {
		t.Errorf("unsized view = %q", got)
	}
}

func TestPagerQuitKeys(t *testing.T) {
	m := pagerModel{content: "x"}
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = sized.(pagerModel)

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		if _, cmd := m.Update(key); cmd == nil {
			t.Errorf("key %q did not quit", key.String())
		}
	}
}

func TestPagerResizeKeepsContent(t *testing.T) {
	m := pagerModel{content: "keep me"}
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = sized.(pagerModel)
	sized, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 12})
	m = sized.(pagerModel)

	if m.viewport.Width != 40 || m.viewport.Height != 11 {
		t.Errorf("viewport = %dx%d, want 40x11", m.viewport.Width, m.viewport.Height)
	}
	if !strings.Contains(stripANSI(m.View()), "keep me") {
		t.Error("content lost across resize")
	}
}
