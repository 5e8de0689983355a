package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/editor"
	"github.com/chris-regnier/calctl/internal/gesture"
	"github.com/chris-regnier/calctl/internal/grid"
	"github.com/chris-regnier/calctl/internal/locale"
	"github.com/chris-regnier/calctl/internal/task"
)

// Binding pairs one rendered checkbox row with its task. The slice is
// ordered exactly like the popup's partitioned task list, so row N of the
// checkboxes always toggles task N.
type Binding struct {
	ID   string
	Task task.Task
	Row  int
}

const bindingAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func newBindingID() string {
	id, err := gonanoid.Generate(bindingAlphabet, 8)
	if err != nil {
		panic(fmt.Sprintf("binding id generation failed: %v", err))
	}
	return id
}

// detailState is the day popup: a derived copy of one day's tasks plus the
// render artifacts needed for cursor movement and mouse hit-testing.
type detailState struct {
	date     time.Time
	tasks    []task.Task
	rows     []string
	bindings []Binding
	viewport viewport.Model
	cursor   int
	toggling string
	ready    bool
}

// daySection is one partition of the popup: a localized label plus the
// tasks that fall under it.
type daySection struct {
	label string
	tasks []task.Task
}

// partitionDay splits a day list relative to the popup's date: overdue
// incomplete first, then incomplete due that day, then completed. Empty
// sections are omitted; order inside each section is preserved.
func partitionDay(ts []task.Task, popupDate time.Time, lang string) []daySection {
	var overdue, current, completed []task.Task
	for _, t := range ts {
		switch {
		case t.Completed:
			completed = append(completed, t)
		case date.BeforeDay(t.Date, popupDate):
			overdue = append(overdue, t)
		default:
			current = append(current, t)
		}
	}

	var out []daySection
	if len(overdue) > 0 {
		out = append(out, daySection{label: locale.T(lang, "label.overdue"), tasks: overdue})
	}
	if len(current) > 0 {
		out = append(out, daySection{label: locale.T(lang, "label.due"), tasks: current})
	}
	if len(completed) > 0 {
		out = append(out, daySection{label: locale.T(lang, "label.completed"), tasks: completed})
	}
	return out
}

func sectionTasks(sections []daySection) []task.Task {
	var out []task.Task
	for _, s := range sections {
		out = append(out, s.tasks...)
	}
	return out
}

// dayDocument synthesizes the markdown handed to glamour: section headings
// plus each task's source lines, nested block included.
func dayDocument(sections []daySection) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## " + s.label + "\n\n")
		for _, t := range s.tasks {
			lines := strings.Split(t.Text, "\n")
			marker := " "
			if t.Completed {
				marker = "x"
			}
			b.WriteString("- [" + marker + "] " + strings.TrimSpace(date.StripTokens(lines[0])) + "\n")
			for _, nested := range lines[1:] {
				b.WriteString(nested + "\n")
			}
		}
	}
	return b.String()
}

var checkboxGlyphs = []string{"[ ]", "[x]", "[X]", "[✓]", "[✔]"}

func hasCheckbox(plain string) bool {
	for _, g := range checkboxGlyphs {
		if strings.Contains(plain, g) {
			return true
		}
	}
	return false
}

// scanBindings walks rendered rows in order and pairs each top-level
// checkbox row with the next task. Checkbox rows indented deeper than the
// first one belong to nested sub-lists and are skipped. A count mismatch
// means the renderer produced something unrecognizable.
func scanBindings(rows []string, ordered []task.Task) ([]Binding, bool) {
	topIndent := -1
	var out []Binding
	for i, row := range rows {
		plain := ansi.Strip(row)
		if !hasCheckbox(plain) {
			continue
		}
		indent := len(plain) - len(strings.TrimLeft(plain, " "))
		if topIndent == -1 {
			topIndent = indent
		}
		if indent > topIndent {
			continue
		}
		if len(out) == len(ordered) {
			return nil, false
		}
		out = append(out, Binding{ID: newBindingID(), Task: ordered[len(out)], Row: i})
	}
	return out, len(out) == len(ordered)
}

func (m calModel) openDetail(d time.Time) calModel {
	m.screen = screenDetail
	m.detail.date = date.Midnight(d)
	m.detail.cursor = 0
	m.detail.toggling = ""
	return m.refreshDetail()
}

// refreshDetail re-queries the aggregate for the popup's date and re-runs
// the full render.
func (m calModel) refreshDetail() calModel {
	m.detail.tasks = grid.Day(m.detail.date, m.today, m.list, m.app.Config.ShowCompleted)
	return m.layoutDetail()
}

func (m calModel) layoutDetail() calModel {
	if m.screen != screenDetail || !m.ready {
		return m
	}

	_, _, contentW, vpH := m.detailGeometry()
	innerW := contentW - 2

	sections := partitionDay(m.detail.tasks, m.detail.date, m.lang)
	ordered := sectionTasks(sections)

	rows, bindings, ok := m.renderDayGlamour(sections, ordered, innerW)
	if !ok {
		rows, bindings = m.renderDayManual(sections, innerW)
	}
	m.detail.rows = rows
	m.detail.bindings = bindings
	if m.detail.cursor >= len(bindings) {
		m.detail.cursor = len(bindings) - 1
	}
	if m.detail.cursor < 0 {
		m.detail.cursor = 0
	}

	if !m.detail.ready {
		m.detail.viewport = viewport.New(contentW, vpH)
		m.detail.ready = true
	} else {
		m.detail.viewport.Width = contentW
		m.detail.viewport.Height = vpH
	}
	m.detail.viewport.SetContent(m.detailContent())
	return m
}

// renderDayGlamour renders the synthesized markdown through glamour and
// binds checkboxes to tasks. Reports false when glamour failed or its
// output could not be bound, in which case the manual renderer takes over.
func (m calModel) renderDayGlamour(sections []daySection, ordered []task.Task, width int) ([]string, []Binding, bool) {
	doc := dayDocument(sections)
	if strings.TrimSpace(doc) == "" {
		return nil, nil, false
	}
	rendered := RenderMarkdownWithStyle(doc, width, m.theme.MarkdownStyle)
	if rendered == doc {
		return nil, nil, false
	}
	rows := strings.Split(rendered, "\n")
	bindings, ok := scanBindings(rows, ordered)
	if !ok {
		return nil, nil, false
	}
	return rows, bindings, true
}

// renderDayManual assembles the popup by hand from the original line text:
// date tokens stripped, nested lines verbatim. Binding rows are exact by
// construction.
func (m calModel) renderDayManual(sections []daySection, width int) ([]string, []Binding) {
	var rows []string
	var bindings []Binding
	for si, s := range sections {
		if si > 0 {
			rows = append(rows, "")
		}
		rows = append(rows, m.theme.HeaderStyle().Underline(true).Render(s.label))
		rows = append(rows, "")
		for _, t := range s.tasks {
			marker := "[ ] "
			if t.Completed {
				marker = "[x] "
			}
			text := strings.TrimSpace(date.StripTokens(t.FirstLine()))
			row := m.theme.ViewPaneStyle().Render(marker) + m.taskStyle(t).Render(text)
			bindings = append(bindings, Binding{ID: newBindingID(), Task: t, Row: len(rows)})
			rows = append(rows, ansi.Truncate(row, width, "…"))
			for _, nested := range strings.Split(t.Text, "\n")[1:] {
				rows = append(rows, ansi.Truncate(m.theme.HelpStyle().Render(nested), width, "…"))
			}
		}
	}
	return rows, bindings
}

// detailContent lays a 2-column gutter over the rendered rows: the cursor
// marker, or an in-flight indicator while a toggle resolves.
func (m calModel) detailContent() string {
	cursorRow := -1
	togglingRow := -1
	if len(m.detail.bindings) > 0 && m.detail.cursor < len(m.detail.bindings) {
		cursorRow = m.detail.bindings[m.detail.cursor].Row
	}
	for _, b := range m.detail.bindings {
		if b.ID == m.detail.toggling {
			togglingRow = b.Row
		}
	}

	out := make([]string, len(m.detail.rows))
	for i, r := range m.detail.rows {
		gutter := m.bgPad(2)
		switch i {
		case togglingRow:
			gutter = m.theme.HelpStyle().Render("…") + m.bgPad(1)
		case cursorRow:
			gutter = m.theme.AccentStyle().Render("❯") + m.bgPad(1)
		}
		out[i] = gutter + r
	}
	return strings.Join(out, "\n")
}

// detailGeometry pins the popup's screen placement: box corner, content
// width and viewport height. Rendering and hit-testing both derive from it.
func (m calModel) detailGeometry() (left, top, contentW, vpH int) {
	outerW := m.width - 6
	if outerW > 80 {
		outerW = 80
	}
	if outerW < 24 {
		outerW = m.width
	}
	outerH := m.height - 4
	if outerH > 24 {
		outerH = 24
	}
	if outerH < 8 {
		outerH = m.height
	}

	contentW = outerW - 4
	vpH = outerH - 4
	if contentW < 4 {
		contentW = 4
	}
	if vpH < 1 {
		vpH = 1
	}
	left = (m.width - outerW) / 2
	top = (m.height - outerH) / 2
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	return left, top, contentW, vpH
}

func (m calModel) insidePopup(x, y int) bool {
	left, top, contentW, vpH := m.detailGeometry()
	return x >= left && x < left+contentW+4 && y >= top && y < top+vpH+4
}

// bindingRowAt maps a screen position to the binding rendered there.
func (m calModel) bindingRowAt(x, y int) (int, bool) {
	left, top, contentW, vpH := m.detailGeometry()
	contentTop := top + 3
	if y < contentTop || y >= contentTop+vpH {
		return 0, false
	}
	if x < left+2 || x >= left+2+contentW {
		return 0, false
	}
	row := y - contentTop + m.detail.viewport.YOffset
	for i, b := range m.detail.bindings {
		if b.Row == row {
			return i, true
		}
	}
	return 0, false
}

func (m calModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.screen = screenMonth
		return m, nil
	case "j", "down":
		return m.moveDetailCursor(1), nil
	case "k", "up":
		return m.moveDetailCursor(-1), nil
	case " ":
		return m.toggleAtCursor()
	case "left":
		return m.shiftDetailDay(-1), nil
	case "right":
		return m.shiftDetailDay(1), nil
	case "e":
		return m.editAtCursor(false)
	case "o":
		return m.editAtCursor(true)
	}

	var cmd tea.Cmd
	m.detail.viewport, cmd = m.detail.viewport.Update(msg)
	return m, cmd
}

func (m calModel) mouseDetail(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	now := time.Now()

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
			var cmd tea.Cmd
			m.detail.viewport, cmd = m.detail.viewport.Update(msg)
			return m, cmd
		case tea.MouseButtonLeft:
			// Presses on a checkbox row toggle; they never start a swipe.
			if idx, ok := m.bindingRowAt(msg.X, msg.Y); ok {
				m.detail.cursor = idx
				return m.toggleAtCursor()
			}
			m.drag = gesture.Begin(msg.X, msg.Y, now)
		}

	case tea.MouseActionMotion:
		if m.drag != nil {
			m.drag.Track(msg.X, msg.Y, now)
		}

	case tea.MouseActionRelease:
		if m.drag == nil {
			return m, nil
		}
		drag := m.drag
		m.drag = nil
		tracked := drag.State() == gesture.Tracking
		state, dir := drag.End(msg.X, msg.Y, now)
		if state == gesture.Committed {
			return m.shiftDetailDay(dir), nil
		}
		if !tracked && !m.insidePopup(msg.X, msg.Y) {
			m.screen = screenMonth
		}
	}
	return m, nil
}

func (m calModel) moveDetailCursor(delta int) calModel {
	if len(m.detail.bindings) == 0 {
		return m
	}
	c := m.detail.cursor + delta
	if c < 0 {
		c = 0
	}
	if c >= len(m.detail.bindings) {
		c = len(m.detail.bindings) - 1
	}
	m.detail.cursor = c
	m.detail.viewport.SetContent(m.detailContent())

	row := m.detail.bindings[c].Row
	if row < m.detail.viewport.YOffset {
		m.detail.viewport.SetYOffset(row)
	} else if row >= m.detail.viewport.YOffset+m.detail.viewport.Height {
		m.detail.viewport.SetYOffset(row - m.detail.viewport.Height + 1)
	}
	return m
}

// toggleAtCursor starts the toggle protocol for the selected binding. The
// checkbox keeps its current state until the resolution reload lands; a
// second toggle is refused while one is in flight.
func (m calModel) toggleAtCursor() (tea.Model, tea.Cmd) {
	if m.detail.toggling != "" || len(m.detail.bindings) == 0 {
		return m, nil
	}
	b := m.detail.bindings[m.detail.cursor]
	m.detail.toggling = b.ID
	m.detail.viewport.SetContent(m.detailContent())
	return m, m.toggleCmd(b.ID, b.Task)
}

func (m calModel) shiftDetailDay(delta int) calModel {
	m.detail.date = m.detail.date.AddDate(0, 0, delta)
	m.detail.cursor = 0
	m.detail.toggling = ""
	return m.refreshDetail()
}

func (m calModel) editAtCursor(useOpener bool) (tea.Model, tea.Cmd) {
	if len(m.detail.bindings) == 0 {
		return m, nil
	}
	t := m.detail.bindings[m.detail.cursor].Task
	cfg := m.app.Config
	root := m.app.Vault.Root()

	if useOpener && cfg.OpenWith == "obsidian" {
		return m, func() tea.Msg {
			return editorFinishedMsg{err: editor.OpenNote(cfg, root, t.Path, t.Line)}
		}
	}

	cmd, err := editor.Command(editor.ResolveEditor(cfg.Editor), filepath.Join(root, t.Path), t.Line)
	if err != nil {
		return m, func() tea.Msg { return editorFinishedMsg{err: err} }
	}
	return m, tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}

func detailTitle(lang string, d time.Time) string {
	month := locale.MonthName(lang, d.Month())
	if lang == "de" {
		return fmt.Sprintf("%d. %s %d", d.Day(), month, d.Year())
	}
	return fmt.Sprintf("%s %d, %d", month, d.Day(), d.Year())
}

func (m calModel) renderDetailBox() string {
	_, _, contentW, _ := m.detailGeometry()
	title := m.theme.HeaderStyle().Render(detailTitle(m.lang, m.detail.date))
	inner := m.padFrag(title, contentW) + "\n" + m.bgPad(contentW) + "\n" + m.detail.viewport.View()
	return m.theme.BorderStyle().Padding(0, 1).Width(contentW + 2).Render(inner)
}

// renderDetailScreen places the popup box at its exact geometry so mouse
// hit zones line up with what is drawn.
func (m calModel) renderDetailScreen() string {
	left, top, _, _ := m.detailGeometry()
	box := m.renderDetailBox()

	lines := make([]string, 0, m.height)
	for i := 0; i < top; i++ {
		lines = append(lines, "")
	}
	for _, bl := range strings.Split(box, "\n") {
		lines = append(lines, m.bgPad(left)+bl)
	}

	bottom := m.height - 1
	if bottom < 1 {
		bottom = 1
	}
	for len(lines) < bottom {
		lines = append(lines, "")
	}
	lines = append(lines[:bottom], m.renderFooter())
	return strings.Join(lines, "\n")
}
