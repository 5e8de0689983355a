package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chris-regnier/calctl/internal/agg"
	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/create"
	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/gesture"
	"github.com/chris-regnier/calctl/internal/grid"
	"github.com/chris-regnier/calctl/internal/locale"
	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/vault"
)

// TaskSource loads the aggregated task list.
type TaskSource interface {
	Load(ctx context.Context) (*agg.List, error)
}

// TaskToggler runs the completion toggle protocol for one task.
type TaskToggler interface {
	Apply(ctx context.Context, t task.Task) (task.Task, error)
}

// TaskCreator drafts and places new tasks through the index service.
type TaskCreator interface {
	CanPrompt(ctx context.Context) bool
	FromPrompt(ctx context.Context, description string, due time.Time) (task.Task, error)
}

// App bundles everything the TUI needs.
type App struct {
	Vault  *vault.Vault
	Config *config.Settings
	Source TaskSource
	Toggle TaskToggler
	Create TaskCreator
	Logger *slog.Logger
}

type calScreen int

const (
	screenMonth calScreen = iota
	screenDetail
)

// Messages produced by command goroutines.
type tasksLoadedMsg struct {
	list *agg.List
	err  error
}

type toggleDoneMsg struct {
	id  string
	err error
}

type taskCreatedMsg struct {
	created task.Task
	err     error
}

type canPromptMsg struct {
	ok  bool
	due time.Time
}

type editorFinishedMsg struct {
	err error
}

type vaultChangedMsg struct{}

type slideTickMsg struct{}

type noticeExpiredMsg struct {
	id int
}

// calModel is the whole TUI state. All mutation happens inside Update.
type calModel struct {
	ctx    context.Context
	app    App
	events <-chan vault.Event
	theme  Theme
	lang   string

	width  int
	height int
	ready  bool

	screen calScreen

	month   time.Time
	today   time.Time
	list    *agg.List
	cells   []grid.Cell
	cursor  int
	loading bool

	wheel gesture.Wheel
	drag  *gesture.Session

	slideDir    int
	slideFrames int

	detail detailState

	promptActive bool
	promptInput  textinput.Model
	promptDue    time.Time
	creating     bool

	notice       string
	noticeID     int
	noticeDanger bool

	err error
}

func newCalModel(ctx context.Context, app App, events <-chan vault.Event) calModel {
	if app.Logger == nil {
		app.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	theme := ResolveTheme(app.Config)
	today := date.Midnight(time.Now())

	input := textinput.New()
	input.CharLimit = 200
	input.Prompt = "> "
	input.PromptStyle = theme.AccentStyle()
	input.TextStyle = theme.ViewPaneStyle()
	input.PlaceholderStyle = theme.HelpStyle()

	m := calModel{
		ctx:         ctx,
		app:         app,
		events:      events,
		theme:       theme,
		lang:        app.Config.Language,
		month:       grid.MonthOf(today),
		today:       today,
		list:        agg.Aggregate(nil),
		loading:     true,
		promptInput: input,
	}
	m = m.rebuild()
	m.cursor = m.todayIndex()
	return m
}

func (m calModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.listenVaultCmd())
}

func (m calModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m = m.layoutDetail()
		return m, nil

	case tasksLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.app.Logger.Warn("ui: load failed", slog.String("error", msg.err.Error()))
			return m.showNotice(locale.T(m.lang, "error.load"))
		}
		m.today = date.Midnight(time.Now())
		m.list = msg.list
		m = m.rebuild()
		if m.screen == screenDetail {
			m = m.refreshDetail()
		}
		return m, nil

	case toggleDoneMsg:
		if m.detail.toggling == msg.id {
			m.detail.toggling = ""
		}
		if msg.err != nil {
			m.app.Logger.Warn("ui: toggle failed", slog.String("error", msg.err.Error()))
			var model calModel
			var cmd tea.Cmd
			model, cmd = m.showNotice(locale.T(m.lang, "error.toggle"))
			return model, tea.Batch(cmd, model.loadCmd())
		}
		// The follow-up reload re-derives the authoritative state.
		return m, m.loadCmd()

	case taskCreatedMsg:
		m.creating = false
		if msg.err != nil {
			key := "error.create_task"
			if errors.Is(msg.err, create.ErrNoService) {
				key = "error.prompt_missing"
			}
			m.app.Logger.Warn("ui: create failed", slog.String("error", msg.err.Error()))
			model, cmd := m.showNotice(locale.T(m.lang, key))
			return model, cmd
		}
		model, cmd := m.showInfo(locale.T(m.lang, "notice.created", msg.created.Path))
		return model, tea.Batch(cmd, model.loadCmd())

	case canPromptMsg:
		if !msg.ok {
			return m.showNotice(locale.T(m.lang, "error.prompt_missing"))
		}
		m.promptActive = true
		m.promptDue = msg.due
		m.promptInput.SetValue("")
		m.promptInput.Placeholder = promptPlaceholder(m.lang, msg.due)
		m.promptInput.Width = m.promptInputWidth()
		m.promptInput.Focus()
		return m, textinput.Blink

	case editorFinishedMsg:
		if msg.err != nil {
			m.app.Logger.Warn("ui: editor failed", slog.String("error", msg.err.Error()))
			model, cmd := m.showNotice(locale.T(m.lang, "error.editor"))
			return model, tea.Batch(cmd, model.loadCmd())
		}
		return m, m.loadCmd()

	case vaultChangedMsg:
		return m, tea.Batch(m.loadCmd(), m.listenVaultCmd())

	case slideTickMsg:
		if m.slideFrames > 0 {
			m.slideFrames--
		}
		if m.slideFrames > 0 {
			return m, m.slideTickCmd()
		}
		m.slideDir = 0
		return m, nil

	case noticeExpiredMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.promptActive {
			return m.updatePrompt(msg)
		}
		if m.screen == screenDetail {
			return m.updateDetail(msg)
		}
		return m.updateMonth(msg)

	case tea.MouseMsg:
		if m.promptActive {
			return m, nil
		}
		if m.screen == screenDetail {
			return m.mouseDetail(msg)
		}
		return m.mouseMonth(msg)
	}

	return m, nil
}

func (m calModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var content string
	if m.screen == screenDetail {
		content = m.renderDetailScreen()
	} else {
		content = m.renderMonth()
	}
	if m.promptActive {
		content = m.overlayPrompt(content)
	}
	return m.theme.PaintScreen(content, m.width, m.height)
}

// rebuild re-derives the grid cells from the current list and keeps the
// cursor inside the grid.
func (m calModel) rebuild() calModel {
	m.cells = grid.Build(m.month, m.today, m.list, m.app.Config.ShowCompleted)
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.cells) {
		m.cursor = len(m.cells) - 1
	}
	return m
}

// todayIndex returns the cell index of today, or of the month's first day
// when today is outside the displayed grid.
func (m calModel) todayIndex() int {
	for i, c := range m.cells {
		if c.IsToday {
			return i
		}
	}
	for i, c := range m.cells {
		if c.InMonth {
			return i
		}
	}
	return 0
}

func (m calModel) loadCmd() tea.Cmd {
	app, ctx := m.app, m.ctx
	return func() tea.Msg {
		list, err := app.Source.Load(ctx)
		return tasksLoadedMsg{list: list, err: err}
	}
}

func (m calModel) toggleCmd(id string, t task.Task) tea.Cmd {
	app, ctx := m.app, m.ctx
	return func() tea.Msg {
		_, err := app.Toggle.Apply(ctx, t)
		return toggleDoneMsg{id: id, err: err}
	}
}

func (m calModel) createCmd(text string, due time.Time) tea.Cmd {
	app, ctx := m.app, m.ctx
	return func() tea.Msg {
		created, err := app.Create.FromPrompt(ctx, text, due)
		return taskCreatedMsg{created: created, err: err}
	}
}

func (m calModel) canPromptCmd(due time.Time) tea.Cmd {
	app, ctx := m.app, m.ctx
	return func() tea.Msg {
		if app.Create == nil {
			return canPromptMsg{ok: false, due: due}
		}
		return canPromptMsg{ok: app.Create.CanPrompt(ctx), due: due}
	}
}

// listenVaultCmd re-arms the watch bridge: one received event becomes one
// message, and the reload handler arms the next receive.
func (m calModel) listenVaultCmd() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return vaultChangedMsg{}
	}
}

const noticeDuration = 3 * time.Second

// showNotice replaces the footer with a transient error message that
// expires on its own unless a newer notice superseded it.
func (m calModel) showNotice(text string) (calModel, tea.Cmd) {
	return m.flashNotice(text, true)
}

func (m calModel) showInfo(text string) (calModel, tea.Cmd) {
	return m.flashNotice(text, false)
}

func (m calModel) flashNotice(text string, danger bool) (calModel, tea.Cmd) {
	m.notice = text
	m.noticeDanger = danger
	m.noticeID++
	id := m.noticeID
	return m, tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

// RunTUI launches the calendar TUI and blocks until it exits.
func RunTUI(ctx context.Context, app App) error {
	var events <-chan vault.Event
	if app.Vault != nil {
		ch, err := app.Vault.Watch(ctx)
		if err != nil {
			if app.Logger != nil {
				app.Logger.Warn("ui: vault watch unavailable", slog.String("error", err.Error()))
			}
		} else {
			events = ch
		}
	}

	m := newCalModel(ctx, app, events)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(calModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
