package source

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/chris-regnier/calctl/internal/agg"
	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/index"
	"github.com/chris-regnier/calctl/internal/scan"
	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/vault"
)

// Lister is the listing side of an index service.
type Lister interface {
	ListTasks(ctx context.Context) ([]index.RawTask, error)
}

// Loader produces the task list, preferring the index service when one is
// configured and falling back to a raw vault scan on any service failure.
// Index entries are treated as pointers: the note is re-read and the line
// re-derived, so a stale entry is skipped rather than displayed wrong.
type Loader struct {
	vault   *vault.Vault
	cfg     *config.Settings
	scanner *scan.Scanner
	lister  Lister
	logger  *slog.Logger
}

// New wires a Loader. lister may be nil when no service is configured.
func New(v *vault.Vault, cfg *config.Settings, lister Lister, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		vault:   v,
		cfg:     cfg,
		scanner: scan.New(v, cfg, logger),
		lister:  lister,
		logger:  logger,
	}
}

// Load returns the aggregated task list.
func (l *Loader) Load(ctx context.Context) (*agg.List, error) {
	if l.lister != nil {
		tasks, err := l.fromIndex(ctx)
		if err == nil {
			return agg.Aggregate(tasks), nil
		}
		l.logger.Warn("source: index unavailable, scanning", slog.String("error", err.Error()))
	}

	tasks, err := l.scanner.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return agg.Aggregate(tasks), nil
}

func (l *Loader) fromIndex(ctx context.Context) ([]task.Task, error) {
	raw, err := l.lister.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	today := date.Midnight(time.Now())
	notes := make(map[string][]string)
	unreadable := make(map[string]bool)

	var out []task.Task
	for _, r := range raw {
		t, ok := l.resolve(r, notes, unreadable, today)
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// resolve turns one index entry into a task by re-reading its note. Any
// mismatch between the entry and the file means the entry is stale.
func (l *Loader) resolve(r index.RawTask, notes map[string][]string, unreadable map[string]bool, today time.Time) (task.Task, bool) {
	path := r.Path()
	if path == "" || !l.cfg.InScanScope(path) {
		return task.Task{}, false
	}
	lineNo, ok := r.Line()
	if !ok {
		return task.Task{}, false
	}

	lines, ok := notes[path]
	if !ok {
		if unreadable[path] {
			return task.Task{}, false
		}
		content, err := l.vault.Read(path)
		if err != nil {
			l.logger.Warn("source: index entry unreadable", slog.String("path", path), slog.String("error", err.Error()))
			unreadable[path] = true
			return task.Task{}, false
		}
		lines = task.Lines(content)
		notes[path] = lines
	}

	if lineNo < 0 || lineNo >= len(lines) {
		l.logger.Debug("source: stale index entry",
			slog.String("path", path), slog.Int("line", lineNo), slog.String("text", r.Text()))
		return task.Task{}, false
	}
	m, ok := task.MatchLine(lines[lineNo])
	if !ok || !strings.Contains(m.Body, date.CalendarMarker) {
		l.logger.Debug("source: stale index entry",
			slog.String("path", path), slog.Int("line", lineNo), slog.String("text", r.Text()))
		return task.Task{}, false
	}

	text, _ := task.Capture(lines, lineNo)
	var d time.Time
	if due, has := r.Due(); has {
		d = date.Midnight(due)
	} else if td, has := date.Extract(text); has {
		d = td
	} else if nd, has := scan.NoteDate(l.cfg, path, strings.Join(lines, "\n")); has {
		d = nd
	} else {
		d = today
	}

	return task.Task{
		Text:      text,
		Date:      d,
		Path:      path,
		Line:      lineNo,
		Completed: m.Completed(),
	}, true
}
