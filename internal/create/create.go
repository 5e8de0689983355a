package create

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/vault"
)

var (
	// ErrNoService means prompted creation was requested but no index
	// service offers a drafting tool.
	ErrNoService = errors.New("task creation needs the index service")
	// ErrCreate marks any other creation failure.
	ErrCreate = errors.New("create failed")
)

// Drafter is the task-drafting side of an index service.
type Drafter interface {
	CanDraft(ctx context.Context) bool
	DraftTask(ctx context.Context, description string, due time.Time) (string, error)
}

// Creator appends new task lines to the month note their date belongs to.
type Creator struct {
	vault   *vault.Vault
	cfg     *config.Settings
	drafter Drafter
	logger  *slog.Logger
}

// New wires a Creator. drafter may be nil when no service is configured.
func New(v *vault.Vault, cfg *config.Settings, drafter Drafter, logger *slog.Logger) *Creator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Creator{vault: v, cfg: cfg, drafter: drafter, logger: logger}
}

// CanPrompt reports whether prompted creation is available right now.
func (c *Creator) CanPrompt(ctx context.Context) bool {
	return c.drafter != nil && c.drafter.CanDraft(ctx)
}

// FromPrompt has the index service draft the checklist line, then places
// it. Without a drafting tool nothing is created.
func (c *Creator) FromPrompt(ctx context.Context, description string, due time.Time) (task.Task, error) {
	if !c.CanPrompt(ctx) {
		return task.Task{}, ErrNoService
	}
	line, err := c.drafter.DraftTask(ctx, strings.TrimSpace(description), due)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", ErrCreate, err)
	}
	return c.place(line, due)
}

// FromText composes the checklist line locally and places it.
func (c *Creator) FromText(text string, due time.Time) (task.Task, error) {
	return c.place(task.Compose(text, due), due)
}

// place appends the line to the month note of its authoritative date. A
// date token in the line wins over the explicitly chosen date; a chosen
// date missing from the line is appended as a token first.
func (c *Creator) place(line string, due time.Time) (task.Task, error) {
	m, ok := task.MatchLine(line)
	if !ok {
		return task.Task{}, fmt.Errorf("%w: not a checklist line: %q", ErrCreate, line)
	}

	if _, ok := date.Extract(m.Body); !ok && !due.IsZero() {
		line = task.AppendDueToken(line, due)
		m, _ = task.MatchLine(line)
	}

	d, ok := date.Extract(m.Body)
	if !ok {
		if !due.IsZero() {
			d = date.Midnight(due)
		} else {
			d = date.Midnight(time.Now())
		}
	}

	rel := path.Join(c.cfg.TasksFolder, date.Format(d, c.cfg.DateFormat)+".md")

	existing := ""
	if c.vault.Exists(rel) {
		content, err := c.vault.Read(rel)
		if err != nil {
			return task.Task{}, fmt.Errorf("%w: %v", ErrCreate, err)
		}
		existing = content
	}

	base := strings.TrimRight(existing, "\n")
	lineNo := 0
	content := line + "\n"
	if base != "" {
		lineNo = strings.Count(base, "\n") + 1
		content = base + "\n" + line + "\n"
	}
	if err := c.vault.Write(rel, content); err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", ErrCreate, err)
	}

	c.logger.Info("create: task added", slog.String("path", rel), slog.Int("line", lineNo))
	return task.Task{
		Text:      m.Body,
		Date:      d,
		Path:      rel,
		Line:      lineNo,
		Completed: m.Completed(),
	}, nil
}
