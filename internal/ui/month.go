package ui

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/gesture"
	"github.com/chris-regnier/calctl/internal/grid"
	"github.com/chris-regnier/calctl/internal/locale"
	"github.com/chris-regnier/calctl/internal/task"
)

const (
	minCellWidth    = 4
	slideFrameCount = 6
	slideInterval   = 30 * time.Millisecond
)

// monthLayout pins every screen region of the month view to fixed rows and
// columns so rendering and mouse hit-testing share one geometry.
type monthLayout struct {
	headerY  int
	weekdayY int
	gridTop  int
	footerY  int
	gridLeft int
	cellW    int
	cellH    int
	label    string

	prevLo, prevHi   int
	labelLo, labelHi int
	nextLo, nextHi   int
	addLo, addHi     int
}

func (m calModel) monthLayout() monthLayout {
	lay := monthLayout{headerY: 0, weekdayY: 1, gridTop: 2, footerY: m.height - 1}

	w := m.width
	lay.cellW = w / grid.Columns
	if lay.cellW < minCellWidth {
		lay.cellW = minCellWidth
	}
	lay.cellH = (m.height - 3) / grid.Rows
	if lay.cellH < 2 {
		lay.cellH = 2
	}
	lay.gridLeft = (w - lay.cellW*grid.Columns) / 2
	if lay.gridLeft < 0 {
		lay.gridLeft = 0
	}

	lay.label = locale.MonthName(m.lang, m.month.Month()) + " " + strconv.Itoa(m.month.Year())

	gridRight := lay.gridLeft + lay.cellW*grid.Columns - 1
	innerLo := lay.gridLeft + 2
	innerHi := gridRight - 5
	innerW := innerHi - innerLo + 1
	if innerW < 1 {
		innerW = 1
	}
	labelW := lipgloss.Width(lay.label)
	if labelW > innerW {
		labelW = innerW
	}
	lay.labelLo = innerLo + (innerW-labelW)/2
	lay.labelHi = lay.labelLo + labelW - 1
	lay.prevLo, lay.prevHi = lay.gridLeft, lay.gridLeft+1
	lay.nextLo, lay.nextHi = gridRight-4, gridRight-2
	lay.addLo, lay.addHi = gridRight-1, gridRight
	return lay
}

// cellAt maps a screen position to a grid cell index.
func (lay monthLayout) cellAt(x, y int) (int, bool) {
	if y < lay.gridTop || y >= lay.gridTop+grid.Rows*lay.cellH {
		return 0, false
	}
	if x < lay.gridLeft || x >= lay.gridLeft+grid.Columns*lay.cellW {
		return 0, false
	}
	row := (y - lay.gridTop) / lay.cellH
	col := (x - lay.gridLeft) / lay.cellW
	return row*grid.Columns + col, true
}

func (lay monthLayout) inGrid(x, y int) bool {
	_, ok := lay.cellAt(x, y)
	return ok
}

func (m calModel) updateMonth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up":
		if m.cursor-grid.Columns >= 0 {
			m.cursor -= grid.Columns
		}
	case "down":
		if m.cursor+grid.Columns < len(m.cells) {
			m.cursor += grid.Columns
		}
	case "left":
		if m.cursor > 0 {
			m.cursor--
		}
	case "right":
		if m.cursor < len(m.cells)-1 {
			m.cursor++
		}
	case "h":
		return m.shiftMonth(-1, false)
	case "l":
		return m.shiftMonth(1, false)
	case "t":
		m.month = grid.MonthOf(m.today)
		m = m.rebuild()
		m.cursor = m.todayIndex()
	case "enter":
		return m.openDetail(m.cursorDate()), nil
	case "a":
		return m, m.canPromptCmd(m.cursorDate())
	case "c":
		m.app.Config.ShowCompleted = !m.app.Config.ShowCompleted
		m = m.rebuild()
		return m, m.saveConfigCmd()
	case "r":
		m.loading = true
		return m, m.loadCmd()
	}
	return m, nil
}

func (m calModel) mouseMonth(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	lay := m.monthLayout()

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			return m.wheelObserve(-1, msg.X, msg.Y, now, lay)
		case tea.MouseButtonWheelDown:
			return m.wheelObserve(1, msg.X, msg.Y, now, lay)
		case tea.MouseButtonLeft:
			if msg.Y == lay.headerY {
				return m.headerClick(msg.X, lay)
			}
			if lay.inGrid(msg.X, msg.Y) {
				m.drag = gesture.Begin(msg.X, msg.Y, now)
			}
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
			return m.shiftMonth(dir, true)
		}
		// A tracked drag that fails the commit thresholds snaps back; only
		// a press that never left the dead zone selects the cell under it.
		if !tracked {
			if idx, ok := lay.cellAt(msg.X, msg.Y); ok {
				m.cursor = idx
				return m.openDetail(m.cells[idx].Date), nil
			}
		}
	}
	return m, nil
}

// wheelObserve feeds one wheel notch into the accumulator. Chrome rows are
// not part of the wheel surface.
func (m calModel) wheelObserve(delta, x, y int, now time.Time, lay monthLayout) (tea.Model, tea.Cmd) {
	if !lay.inGrid(x, y) {
		return m, nil
	}
	if dir := m.wheel.Observe(delta, now); dir != 0 {
		return m.shiftMonth(dir, false)
	}
	return m, nil
}

func (m calModel) headerClick(x int, lay monthLayout) (tea.Model, tea.Cmd) {
	switch {
	case x >= lay.prevLo && x <= lay.prevHi:
		return m.shiftMonth(-1, false)
	case x >= lay.nextLo && x <= lay.nextHi:
		return m.shiftMonth(1, false)
	case x >= lay.addLo && x <= lay.addHi:
		return m, m.canPromptCmd(m.cursorDate())
	case x >= lay.labelLo && x <= lay.labelHi:
		m.month = grid.MonthOf(m.today)
		m = m.rebuild()
		m.cursor = m.todayIndex()
		return m, nil
	}
	return m, nil
}

func (m calModel) shiftMonth(delta int, animate bool) (tea.Model, tea.Cmd) {
	m.month = grid.Shift(m.month, delta)
	m = m.rebuild()
	m.cursor = m.todayIndex()
	if animate {
		m.slideDir = 1
		if delta < 0 {
			m.slideDir = -1
		}
		m.slideFrames = slideFrameCount
		return m, m.slideTickCmd()
	}
	return m, nil
}

func (m calModel) slideTickCmd() tea.Cmd {
	return tea.Tick(slideInterval, func(time.Time) tea.Msg {
		return slideTickMsg{}
	})
}

func (m calModel) cursorDate() time.Time {
	if m.cursor >= 0 && m.cursor < len(m.cells) {
		return m.cells[m.cursor].Date
	}
	return m.today
}

func (m calModel) saveConfigCmd() tea.Cmd {
	cfg, logger := m.app.Config, m.app.Logger
	return func() tea.Msg {
		if err := config.Save(cfg); err != nil {
			logger.Warn("ui: config save failed", slog.String("error", err.Error()))
		}
		return nil
	}
}

// gridOffset is the horizontal translation of the grid block: the live drag
// delta while tracking, or the decaying slide offset after a commit.
func (m calModel) gridOffset() int {
	if m.drag != nil && m.drag.State() == gesture.Tracking {
		return m.drag.DX()
	}
	if m.slideFrames > 0 {
		return m.slideDir * m.slideFrames * slideStep(m.width)
	}
	return 0
}

func slideStep(width int) int {
	s := width / 30
	if s < 2 {
		s = 2
	}
	return s
}

// translateBlock shifts every line of a rendered block horizontally,
// clipping to the terminal width. Truncation is ANSI-aware so styled cells
// survive the cut.
func translateBlock(block string, dx, width int, th Theme) string {
	if dx == 0 {
		return block
	}
	pad := lipgloss.NewStyle().Background(th.Background).Render(strings.Repeat(" ", abs(dx)))
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		if dx > 0 {
			lines[i] = ansi.Truncate(pad+line, width, "")
		} else {
			lines[i] = ansi.TruncateLeft(line, -dx, "")
		}
	}
	return strings.Join(lines, "\n")
}

func (m calModel) renderMonth() string {
	lay := m.monthLayout()

	gridBlock := m.renderGrid(lay)
	if dx := m.gridOffset(); dx != 0 {
		gridBlock = translateBlock(gridBlock, dx, m.width, m.theme)
	}

	lines := []string{m.renderHeader(lay), m.renderWeekdays(lay)}
	lines = append(lines, strings.Split(gridBlock, "\n")...)

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

func (m calModel) renderHeader(lay monthLayout) string {
	gridRight := lay.gridLeft + lay.cellW*grid.Columns - 1

	label := lay.label
	if w := lay.labelHi - lay.labelLo + 1; lipgloss.Width(label) > w {
		label = ansi.Truncate(label, w, "")
	}

	var b strings.Builder
	b.WriteString(m.bgPad(lay.gridLeft))
	b.WriteString(m.theme.AccentStyle().Render("‹"))
	b.WriteString(m.bgPad(lay.labelLo - lay.gridLeft - 1))
	b.WriteString(m.theme.HeaderStyle().Render(label))
	b.WriteString(m.bgPad(gridRight - 3 - lay.labelHi - 1))
	b.WriteString(m.theme.AccentStyle().Render("›"))
	b.WriteString(m.bgPad(2))
	b.WriteString(m.theme.AccentStyle().Render("+"))
	return b.String()
}

func (m calModel) renderWeekdays(lay monthLayout) string {
	var b strings.Builder
	b.WriteString(m.bgPad(lay.gridLeft))
	for _, name := range locale.WeekdayHeaders(m.lang) {
		b.WriteString(m.padFrag(m.theme.HelpStyle().Render(name), lay.cellW))
	}
	return b.String()
}

func (m calModel) renderGrid(lay monthLayout) string {
	indent := m.bgPad(lay.gridLeft)
	lines := make([]string, 0, grid.Rows*lay.cellH)
	for row := 0; row < grid.Rows; row++ {
		cells := make([][]string, grid.Columns)
		for col := 0; col < grid.Columns; col++ {
			idx := row*grid.Columns + col
			cells[col] = m.renderCell(m.cells[idx], idx == m.cursor, lay)
		}
		for li := 0; li < lay.cellH; li++ {
			var b strings.Builder
			b.WriteString(indent)
			for col := 0; col < grid.Columns; col++ {
				b.WriteString(cells[col][li])
			}
			lines = append(lines, b.String())
		}
	}
	return strings.Join(lines, "\n")
}

// renderCell renders one grid cell as exactly cellH fragments of cellW
// columns: the day number, then task rows, with the last row traded for a
// "+N" badge when the cell holds more than fits.
func (m calModel) renderCell(c grid.Cell, selected bool, lay monthLayout) []string {
	out := make([]string, lay.cellH)

	style := m.theme.ViewPaneStyle()
	if !c.InMonth {
		style = m.theme.HelpStyle()
	}
	if c.IsToday {
		style = m.theme.AccentStyle().Bold(true)
	}
	if selected {
		style = style.Reverse(true)
	}
	out[0] = m.padFrag(style.Render(fmt.Sprintf("%2d", c.Date.Day())), lay.cellW)

	rowsAvail := lay.cellH - 1
	shown := len(c.Visible)
	if shown > rowsAvail {
		shown = rowsAvail
	}
	hidden := len(c.Tasks) - shown
	if hidden > 0 && shown == rowsAvail && rowsAvail > 0 {
		shown--
		hidden++
	}

	for i := 0; i < rowsAvail; i++ {
		li := i + 1
		switch {
		case i < shown:
			t := c.Visible[i]
			text := strings.TrimSpace(date.StripTokens(t.FirstLine()))
			frag := ansi.Truncate(m.taskStyle(t).Render(text), lay.cellW-1, "…")
			out[li] = m.padFrag(frag, lay.cellW)
		case i == shown && hidden > 0:
			badge := locale.T(m.lang, "label.more", hidden)
			frag := ansi.Truncate(m.theme.HelpStyle().Render(badge), lay.cellW-1, "")
			out[li] = m.padFrag(frag, lay.cellW)
		default:
			out[li] = m.bgPad(lay.cellW)
		}
	}
	return out
}

func (m calModel) taskStyle(t task.Task) lipgloss.Style {
	if t.Completed {
		return m.theme.CompletedStyle()
	}
	if date.BeforeDay(t.Date, m.today) {
		return m.theme.OverdueStyle()
	}
	return m.theme.CurrentStyle()
}

func (m calModel) renderFooter() string {
	if m.notice != "" {
		if m.noticeDanger {
			return m.theme.DangerStyle().Render(m.notice)
		}
		return m.theme.AccentStyle().Render(m.notice)
	}
	key := "help.month"
	if m.screen == screenDetail {
		key = "help.detail"
	}
	return m.theme.HelpStyle().Render(locale.T(m.lang, key))
}

// padFrag pads a styled fragment to exactly w columns with background-
// colored spaces.
func (m calModel) padFrag(s string, w int) string {
	width := lipgloss.Width(s)
	if width >= w {
		return s
	}
	return s + m.bgPad(w-width)
}

func (m calModel) bgPad(n int) string {
	if n <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Background(m.theme.Background).Render(strings.Repeat(" ", n))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
