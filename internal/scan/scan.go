package scan

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/vault"
)

// Scanner is the raw-text-scan task source: every markdown note in
// scan-scope is split into lines and matched against the checklist syntax.
// It is the always-available fallback when no index service answers.
type Scanner struct {
	vault  *vault.Vault
	cfg    *config.Settings
	logger *slog.Logger
}

// New returns a Scanner over the given vault.
func New(v *vault.Vault, cfg *config.Settings, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scanner{vault: v, cfg: cfg, logger: logger}
}

// Tasks discovers every calendar-marked checklist line in scan-scope. Notes
// that fail to read are logged and skipped; a scan never fails on one bad
// note.
func (s *Scanner) Tasks(ctx context.Context) ([]task.Task, error) {
	notes, err := s.vault.List()
	if err != nil {
		return nil, err
	}

	today := date.Midnight(time.Now())
	var out []task.Task
	for _, rel := range notes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if !s.cfg.InScanScope(rel) {
			continue
		}
		content, err := s.vault.Read(rel)
		if err != nil {
			s.logger.Warn("scan: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		out = append(out, s.ScanNote(rel, content, today)...)
	}
	return out, nil
}

// ScanNote extracts the tasks of a single note. today is the fallback of
// last resort for dateless tasks in undated notes.
func (s *Scanner) ScanNote(rel, content string, today time.Time) []task.Task {
	noteDate, hasNoteDate := NoteDate(s.cfg, rel, content)
	lines := task.Lines(content)

	var tasks []task.Task
	for i, line := range lines {
		m, ok := task.MatchLine(line)
		if !ok {
			continue
		}
		if !strings.Contains(m.Body, date.CalendarMarker) {
			continue
		}
		text, _ := task.Capture(lines, i)
		d, ok := date.Extract(text)
		if !ok {
			if hasNoteDate {
				d = noteDate
			} else {
				d = today
			}
		}
		tasks = append(tasks, task.Task{
			Text:      text,
			Date:      d,
			Path:      rel,
			Line:      i,
			Completed: m.Completed(),
		})
	}
	return tasks
}

// NoteDate resolves a note's fallback date: the filename patterns first
// (configured, then legacy daily), then a frontmatter date field.
func NoteDate(cfg *config.Settings, rel, content string) (time.Time, bool) {
	if d, ok := date.FromFilename(rel, cfg.DateFormat); ok {
		return d, true
	}
	var meta struct {
		Date string `yaml:"date"`
	}
	if _, err := frontmatter.Parse(strings.NewReader(content), &meta); err == nil && meta.Date != "" {
		if d, err := date.ParseISO(meta.Date); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
