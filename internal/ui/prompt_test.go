package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chris-regnier/calctl/internal/create"
	"github.com/chris-regnier/calctl/internal/task"
)

func TestQuickAddFlow(t *testing.T) {
	m := newTestModel(t, nil)
	creator := &stubCreator{can: true, created: task.Task{Path: "notes/2025-03.md", Line: 3}}
	m.app.Create = creator

	model, cmd := m.updateMonth(keyRunes("a"))
	m = model.(calModel)
	if cmd == nil {
		t.Fatal("a returned no capability probe")
	}
	probe, ok := cmd().(canPromptMsg)
	if !ok || !probe.ok {
		t.Fatalf("probe = %+v", probe)
	}
	if !probe.due.Equal(testDay) {
		t.Fatalf("probe due = %v, want cursor date %v", probe.due, testDay)
	}

	model, _ = m.Update(probe)
	m = model.(calModel)
	if !m.promptActive {
		t.Fatal("prompt did not open")
	}
	if !strings.Contains(m.promptInput.Placeholder, "March 14, 2025") {
		t.Errorf("placeholder = %q", m.promptInput.Placeholder)
	}

	model, _ = m.updatePrompt(keyRunes("Buy oats"))
	m = model.(calModel)
	model, cmd = m.updatePrompt(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(calModel)
	if m.promptActive {
		t.Error("prompt stayed open after submit")
	}
	if !m.creating || cmd == nil {
		t.Fatal("submit did not start the create")
	}

	raw := cmd()
	done, ok := raw.(taskCreatedMsg)
	if !ok {
		t.Fatalf("create command returned %T", raw)
	}
	if creator.gotText != "Buy oats" || !creator.gotDue.Equal(testDay) {
		t.Fatalf("creator saw %q due %v", creator.gotText, creator.gotDue)
	}

	model, _ = m.Update(done)
	m = model.(calModel)
	if m.creating {
		t.Error("creating flag survived the resolution")
	}
	if !strings.Contains(m.notice, "notes/2025-03.md") {
		t.Errorf("notice = %q, want the target note path", m.notice)
	}
	if m.noticeDanger {
		t.Error("success notice marked as an error")
	}
}

func TestPromptEscCancels(t *testing.T) {
	m := newTestModel(t, nil)
	m.app.Create = &stubCreator{can: true}
	model, _ := m.Update(canPromptMsg{ok: true, due: testDay})
	m = model.(calModel)

	model, cmd := m.updatePrompt(tea.KeyMsg{Type: tea.KeyEsc})
	m = model.(calModel)
	if m.promptActive || cmd != nil {
		t.Error("esc did not cancel the prompt")
	}
	if m.creating {
		t.Error("cancel started a create")
	}
}

func TestPromptEmptySubmitIgnored(t *testing.T) {
	m := newTestModel(t, nil)
	model, _ := m.Update(canPromptMsg{ok: true, due: testDay})
	m = model.(calModel)

	model, cmd := m.updatePrompt(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(calModel)
	if cmd != nil || m.creating {
		t.Error("empty submit started a create")
	}
	if m.promptActive {
		t.Error("empty submit left the prompt open")
	}
}

func TestPromptRefusedWithoutService(t *testing.T) {
	m := newTestModel(t, nil)

	model, _ := m.Update(canPromptMsg{ok: false, due: testDay})
	m = model.(calModel)
	if m.promptActive {
		t.Fatal("prompt opened without a capable service")
	}
	if m.notice != "Task creation needs the index service" {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestCreateErrorNotices(t *testing.T) {
	m := newTestModel(t, nil)

	model, _ := m.Update(taskCreatedMsg{err: create.ErrNoService})
	got := model.(calModel)
	if got.notice != "Task creation needs the index service" {
		t.Errorf("no-service notice = %q", got.notice)
	}

	model, _ = m.Update(taskCreatedMsg{err: errors.New("disk full")})
	got = model.(calModel)
	if got.notice != "Could not create the task" {
		t.Errorf("generic notice = %q", got.notice)
	}
}

func TestPromptOverlayInView(t *testing.T) {
	m := newTestModel(t, nil)
	model, _ := m.Update(canPromptMsg{ok: true, due: testDay})
	m = model.(calModel)

	view := stripANSI(m.View())
	if !strings.Contains(view, "New task for March 14, 2025") {
		t.Error("prompt overlay missing from the view")
	}
	if !strings.Contains(view, "March 2025") {
		t.Error("month header should stay visible behind the overlay")
	}
}

func TestPromptKeysDoNotReachMonth(t *testing.T) {
	m := newTestModel(t, nil)
	model, _ := m.Update(canPromptMsg{ok: true, due: testDay})
	m = model.(calModel)

	model, _ = m.Update(keyRunes("l"))
	m = model.(calModel)
	if got := m.month.Month(); got != time.March {
		t.Errorf("typed l leaked into month navigation, month = %v", got)
	}
	if got := m.promptInput.Value(); got != "l" {
		t.Errorf("input value = %q, want %q", got, "l")
	}
}
