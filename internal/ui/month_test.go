package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chris-regnier/calctl/internal/agg"
	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/gesture"
	"github.com/chris-regnier/calctl/internal/grid"
	"github.com/chris-regnier/calctl/internal/task"
)

// testDay is a fixed Friday so grid indices in assertions stay stable:
// March 2025 renders with Monday February 24 in cell 0, so March 14 lands
// in cell 18.
var testDay = time.Date(2025, time.March, 14, 0, 0, 0, 0, time.Local)

type stubSource struct {
	list *agg.List
	err  error
}

func (s *stubSource) Load(ctx context.Context) (*agg.List, error) {
	return s.list, s.err
}

type stubToggler struct {
	applied []task.Task
	err     error
}

func (s *stubToggler) Apply(ctx context.Context, t task.Task) (task.Task, error) {
	s.applied = append(s.applied, t)
	if s.err != nil {
		return t, s.err
	}
	t.Completed = !t.Completed
	return t, nil
}

type stubCreator struct {
	can     bool
	created task.Task
	err     error
	gotText string
	gotDue  time.Time
}

func (s *stubCreator) CanPrompt(ctx context.Context) bool { return s.can }

func (s *stubCreator) FromPrompt(ctx context.Context, text string, due time.Time) (task.Task, error) {
	s.gotText, s.gotDue = text, due
	return s.created, s.err
}

func mkTask(day int, text string, completed bool) task.Task {
	return task.Task{
		Text:      text,
		Date:      time.Date(2025, time.March, day, 0, 0, 0, 0, time.Local),
		Path:      "notes/2025-03.md",
		Line:      day,
		Completed: completed,
	}
}

// newTestModel builds a sized model pinned to testDay with the given tasks
// already aggregated.
func newTestModel(t *testing.T, tasks []task.Task) calModel {
	t.Helper()
	cfg := &config.Settings{
		Vault:      t.TempDir(),
		DateFormat: "2006-01",
		Language:   "en",
		Theme:      "default-dark",
	}
	app := App{
		Config: cfg,
		Source: &stubSource{list: agg.Aggregate(tasks)},
		Toggle: &stubToggler{},
	}
	m := newCalModel(context.Background(), app, nil)
	m.today = testDay
	m.month = grid.MonthOf(testDay)
	m.list = agg.Aggregate(tasks)
	m = m.rebuild()
	m.cursor = m.todayIndex()

	sized, _ := m.Update(tea.WindowSizeMsg{Width: 84, Height: 30})
	return sized.(calModel)
}

func keyRunes(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func TestMonthCursorKeys(t *testing.T) {
	m := newTestModel(t, nil)
	if m.cursor != 18 {
		t.Fatalf("initial cursor = %d, want 18", m.cursor)
	}

	model, _ := m.updateMonth(tea.KeyMsg{Type: tea.KeyDown})
	m = model.(calModel)
	if m.cursor != 25 {
		t.Errorf("cursor after down = %d, want 25", m.cursor)
	}

	model, _ = m.updateMonth(tea.KeyMsg{Type: tea.KeyLeft})
	m = model.(calModel)
	if m.cursor != 24 {
		t.Errorf("cursor after left = %d, want 24", m.cursor)
	}

	model, _ = m.updateMonth(tea.KeyMsg{Type: tea.KeyUp})
	m = model.(calModel)
	if m.cursor != 17 {
		t.Errorf("cursor after up = %d, want 17", m.cursor)
	}
}

func TestMonthCursorClampsAtEdges(t *testing.T) {
	m := newTestModel(t, nil)
	m.cursor = 3

	model, _ := m.updateMonth(tea.KeyMsg{Type: tea.KeyUp})
	m = model.(calModel)
	if m.cursor != 3 {
		t.Errorf("cursor moved above the first row: %d", m.cursor)
	}

	m.cursor = len(m.cells) - 1
	model, _ = m.updateMonth(tea.KeyMsg{Type: tea.KeyRight})
	m = model.(calModel)
	if m.cursor != len(m.cells)-1 {
		t.Errorf("cursor moved past the last cell: %d", m.cursor)
	}
}

func TestMonthShiftKeys(t *testing.T) {
	m := newTestModel(t, nil)

	model, _ := m.updateMonth(keyRunes("l"))
	m = model.(calModel)
	if got := m.month.Month(); got != time.April {
		t.Fatalf("month after l = %v, want April", got)
	}
	if len(m.cells) != grid.Rows*grid.Columns {
		t.Fatalf("cells = %d, want %d", len(m.cells), grid.Rows*grid.Columns)
	}
	if m.slideFrames != 0 {
		t.Errorf("keyboard shift must not animate, slideFrames = %d", m.slideFrames)
	}

	model, _ = m.updateMonth(keyRunes("h"))
	m = model.(calModel)
	model, _ = m.updateMonth(keyRunes("h"))
	m = model.(calModel)
	if got := m.month.Month(); got != time.February {
		t.Errorf("month after l,h,h = %v, want February", got)
	}

	model, _ = m.updateMonth(keyRunes("t"))
	m = model.(calModel)
	if got := m.month.Month(); got != time.March {
		t.Errorf("month after t = %v, want March", got)
	}
	if m.cursor != 18 {
		t.Errorf("cursor after t = %d, want 18", m.cursor)
	}
}

func TestMonthEnterOpensDetail(t *testing.T) {
	m := newTestModel(t, []task.Task{mkTask(14, "Buy milk", false)})

	model, _ := m.updateMonth(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(calModel)
	if m.screen != screenDetail {
		t.Fatalf("screen = %v, want detail", m.screen)
	}
	if !m.detail.date.Equal(testDay) {
		t.Errorf("detail date = %v, want %v", m.detail.date, testDay)
	}
}

func TestMonthShowCompletedKey(t *testing.T) {
	m := newTestModel(t, []task.Task{
		mkTask(14, "Buy milk", false),
		mkTask(14, "Pay rent", true),
	})
	if got := len(m.cells[18].Visible); got != 1 {
		t.Fatalf("visible before toggle = %d, want 1", got)
	}

	model, cmd := m.updateMonth(keyRunes("c"))
	m = model.(calModel)
	if !m.app.Config.ShowCompleted {
		t.Fatal("ShowCompleted not flipped")
	}
	if got := len(m.cells[18].Visible); got != 2 {
		t.Errorf("visible after toggle = %d, want 2", got)
	}
	if cmd == nil {
		t.Error("expected a config save command")
	}
}

func TestMonthWheelPagesForward(t *testing.T) {
	m := newTestModel(t, nil)

	wheel := tea.MouseMsg{X: 40, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown}
	for i := 0; i < 3; i++ {
		model, _ := m.Update(wheel)
		m = model.(calModel)
	}
	if got := m.month.Month(); got != time.April {
		t.Errorf("month after three wheel notches = %v, want April", got)
	}
	if m.slideFrames != 0 {
		t.Errorf("wheel paging must not animate, slideFrames = %d", m.slideFrames)
	}
}

func TestMonthWheelIgnoredOutsideGrid(t *testing.T) {
	m := newTestModel(t, nil)

	wheel := tea.MouseMsg{X: 40, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown}
	for i := 0; i < 6; i++ {
		model, _ := m.Update(wheel)
		m = model.(calModel)
	}
	if got := m.month.Month(); got != time.March {
		t.Errorf("wheel on the header row changed the month to %v", got)
	}
}

func TestMonthSwipeCommits(t *testing.T) {
	m := newTestModel(t, nil)

	model, _ := m.Update(tea.MouseMsg{X: 60, Y: 12, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = model.(calModel)
	if m.drag == nil {
		t.Fatal("press inside the grid did not open a drag session")
	}

	model, _ = m.Update(tea.MouseMsg{X: 38, Y: 12, Action: tea.MouseActionMotion})
	m = model.(calModel)
	if m.gridOffset() != -22 {
		t.Errorf("live drag offset = %d, want -22", m.gridOffset())
	}

	model, _ = m.Update(tea.MouseMsg{X: 30, Y: 12, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = model.(calModel)
	if got := m.month.Month(); got != time.April {
		t.Fatalf("month after left swipe = %v, want April", got)
	}
	if m.slideFrames != slideFrameCount {
		t.Errorf("swipe commit must animate, slideFrames = %d", m.slideFrames)
	}
	if m.drag != nil {
		t.Error("drag session survived the release")
	}
}

func TestMonthCancelledSwipeIsNotATap(t *testing.T) {
	m := newTestModel(t, nil)

	model, _ := m.Update(tea.MouseMsg{X: 50, Y: 12, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = model.(calModel)
	// 12 cells leaves the dead zone but stays under the commit distance.
	model, _ = m.Update(tea.MouseMsg{X: 62, Y: 12, Action: tea.MouseActionMotion})
	m = model.(calModel)
	if m.drag == nil || m.drag.State() != gesture.Tracking {
		t.Fatal("drag did not enter tracking")
	}
	model, _ = m.Update(tea.MouseMsg{X: 62, Y: 12, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = model.(calModel)

	if got := m.month.Month(); got != time.March {
		t.Fatalf("failed swipe changed the month to %v", got)
	}
	if m.screen != screenMonth {
		t.Error("failed swipe opened the detail popup for the release cell")
	}
	if m.drag != nil {
		t.Error("drag session survived the release")
	}
}

func TestMonthTapSelectsAndOpens(t *testing.T) {
	m := newTestModel(t, nil)

	// Cell 14 spans x 0-11, y 10-13.
	model, _ := m.Update(tea.MouseMsg{X: 5, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = model.(calModel)
	model, _ = m.Update(tea.MouseMsg{X: 5, Y: 10, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = model.(calModel)

	if m.cursor != 14 {
		t.Errorf("cursor after tap = %d, want 14", m.cursor)
	}
	if m.screen != screenDetail {
		t.Fatalf("tap did not open the detail popup")
	}
	want := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.Local)
	if !m.detail.date.Equal(want) {
		t.Errorf("detail date = %v, want %v", m.detail.date, want)
	}
}

func TestMonthHeaderClicks(t *testing.T) {
	m := newTestModel(t, nil)
	lay := m.monthLayout()

	model, _ := m.Update(tea.MouseMsg{X: lay.prevLo, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = model.(calModel)
	if got := m.month.Month(); got != time.February {
		t.Fatalf("month after prev click = %v, want February", got)
	}

	model, _ = m.Update(tea.MouseMsg{X: lay.nextLo, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = model.(calModel)
	model, _ = m.Update(tea.MouseMsg{X: lay.nextLo, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = model.(calModel)
	if got := m.month.Month(); got != time.April {
		t.Fatalf("month after two next clicks = %v, want April", got)
	}

	model, _ = m.Update(tea.MouseMsg{X: lay.labelLo, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = model.(calModel)
	if got := m.month.Month(); got != time.March {
		t.Errorf("label click did not return to today's month, got %v", got)
	}
}

func TestMonthAddButtonAsksService(t *testing.T) {
	m := newTestModel(t, nil)
	m.app.Create = &stubCreator{can: false}
	lay := m.monthLayout()

	model, cmd := m.Update(tea.MouseMsg{X: lay.addLo, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = model.(calModel)
	if cmd == nil {
		t.Fatal("add click returned no command")
	}
	msg, ok := cmd().(canPromptMsg)
	if !ok {
		t.Fatalf("add command returned %T, want canPromptMsg", cmd())
	}
	if msg.ok {
		t.Error("service refused the prompt but the message says ok")
	}
	if !msg.due.Equal(testDay) {
		t.Errorf("prompt due = %v, want %v", msg.due, testDay)
	}
}

func TestRenderMonthChrome(t *testing.T) {
	m := newTestModel(t, nil)
	view := stripANSI(m.renderMonth())

	if !strings.Contains(view, "March 2025") {
		t.Error("header label missing")
	}
	for _, wd := range []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"} {
		if !strings.Contains(view, wd) {
			t.Errorf("weekday header %q missing", wd)
		}
	}
	if !strings.Contains(view, "‹") || !strings.Contains(view, "›") || !strings.Contains(view, "+") {
		t.Error("header controls missing")
	}
	if got := countLines(view); got != 30 {
		t.Errorf("rendered lines = %d, want 30", got)
	}
}

func TestRenderMonthTaskRows(t *testing.T) {
	m := newTestModel(t, []task.Task{
		mkTask(14, "Buy milk 📅 2025-03-14", false),
	})
	view := stripANSI(m.renderMonth())

	if !strings.Contains(view, "Buy milk") {
		t.Error("task text missing from its cell")
	}
	if strings.Contains(view, "📅") {
		t.Error("date token leaked into the cell")
	}
}

func TestRenderMonthMoreBadge(t *testing.T) {
	m := newTestModel(t, []task.Task{
		mkTask(20, "One", false),
		mkTask(20, "Two", false),
		mkTask(20, "Three", false),
		mkTask(20, "Four", false),
	})
	view := stripANSI(m.renderMonth())

	if !strings.Contains(view, "+2 more") {
		t.Errorf("overflow badge missing:\n%s", view)
	}
}

func TestRenderMonthOverdueInToday(t *testing.T) {
	m := newTestModel(t, []task.Task{
		mkTask(10, "Call plumber", false),
	})

	cell := m.cells[18]
	if len(cell.Visible) != 1 || cell.Visible[0].Text != "Call plumber" {
		t.Fatalf("overdue task not carried into today's cell: %+v", cell.Visible)
	}

	prior := m.cells[14]
	if len(prior.Visible) != 1 {
		t.Errorf("task missing from its own date cell")
	}
}

func TestSlideTickDecays(t *testing.T) {
	m := newTestModel(t, nil)
	m.slideDir = 1
	m.slideFrames = 2

	model, cmd := m.Update(slideTickMsg{})
	m = model.(calModel)
	if m.slideFrames != 1 || cmd == nil {
		t.Fatalf("first tick: frames = %d, cmd nil = %v", m.slideFrames, cmd == nil)
	}

	model, cmd = m.Update(slideTickMsg{})
	m = model.(calModel)
	if m.slideFrames != 0 || m.slideDir != 0 {
		t.Errorf("slide did not settle: frames = %d dir = %d", m.slideFrames, m.slideDir)
	}
	if cmd != nil {
		t.Error("settled slide still re-armed the ticker")
	}
}

func TestLoadErrorShowsNotice(t *testing.T) {
	m := newTestModel(t, nil)

	model, _ := m.Update(tasksLoadedMsg{err: errors.New("boom")})
	m = model.(calModel)
	if m.notice == "" {
		t.Fatal("load failure produced no notice")
	}
	if !m.noticeDanger {
		t.Error("load failure notice is not marked as an error")
	}
	if !strings.Contains(stripANSI(m.renderFooter()), m.notice) {
		t.Error("footer does not carry the notice")
	}
}

func TestNoticeSupersession(t *testing.T) {
	m := newTestModel(t, nil)

	m, _ = m.showNotice("first")
	firstID := m.noticeID
	m, _ = m.showNotice("second")

	model, _ := m.Update(noticeExpiredMsg{id: firstID})
	m = model.(calModel)
	if m.notice != "second" {
		t.Fatalf("stale expiry cleared the newer notice, notice = %q", m.notice)
	}

	model, _ = m.Update(noticeExpiredMsg{id: m.noticeID})
	m = model.(calModel)
	if m.notice != "" {
		t.Errorf("matching expiry left the notice in place: %q", m.notice)
	}
}
