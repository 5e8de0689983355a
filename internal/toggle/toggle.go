package toggle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/vault"
)

var (
	// ErrStale means the note line no longer holds the task being toggled.
	ErrStale = errors.New("task no longer matches its note line")
	// ErrToggle means every strategy failed and the note was left alone.
	ErrToggle = errors.New("toggle failed")
)

// SettleDelay is how long a service gets to finish writing before the note
// is re-read after a blind toggle call.
const SettleDelay = 400 * time.Millisecond

// Rewriter is the line-rewrite side of an index service: it takes the
// current source line and answers with a replacement line.
type Rewriter interface {
	RewriteLine(ctx context.Context, path string, line int, text string) (string, error)
}

// Toggler is the task-toggle side of an index service.
type Toggler interface {
	ToggleTask(ctx context.Context, path string, line int) error
}

// Chain flips a task's completion state by trying strategies in order:
// service line-rewrite (the replacement comes back and is written here),
// service task-toggle (the service writes, the result is verified against
// the re-read note), then direct substitution. Any failure falls through to
// the next strategy. rewriter and toggler may be nil.
type Chain struct {
	vault    *vault.Vault
	rewriter Rewriter
	toggler  Toggler
	logger   *slog.Logger

	settle time.Duration
}

// New wires a Chain over an open vault.
func New(v *vault.Vault, rewriter Rewriter, toggler Toggler, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Chain{
		vault:    v,
		rewriter: rewriter,
		toggler:  toggler,
		logger:   logger,
		settle:   SettleDelay,
	}
}

// Apply toggles t and returns the updated task. The note is re-read first:
// if the line no longer carries this task, nothing is written and ErrStale
// comes back.
func (c *Chain) Apply(ctx context.Context, t task.Task) (task.Task, error) {
	content, err := c.vault.Read(t.Path)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", ErrToggle, err)
	}
	lines := task.Lines(content)
	if t.Line < 0 || t.Line >= len(lines) {
		return task.Task{}, ErrStale
	}
	m, ok := task.MatchLine(lines[t.Line])
	if !ok || m.Completed() != t.Completed || m.Body != t.FirstLine() {
		return task.Task{}, ErrStale
	}

	want := !t.Completed

	if c.rewriter != nil {
		// The current line goes to the service; whatever it answers is
		// written back verbatim and the state re-derived from its marker,
		// since the service may change formatting along with the checkbox.
		if replacement, err := c.rewriter.RewriteLine(ctx, t.Path, t.Line, lines[t.Line]); err != nil {
			c.logger.Warn("toggle: line rewrite failed", slog.String("path", t.Path), slog.String("error", err.Error()))
		} else if rm, ok := task.MatchLine(replacement); !ok || rm.Completed() != want {
			c.logger.Warn("toggle: rewrite returned an unusable line", slog.String("path", t.Path))
		} else {
			lines[t.Line] = replacement
			if err := c.vault.Write(t.Path, strings.Join(lines, "\n")); err != nil {
				c.logger.Warn("toggle: rewrite write failed", slog.String("path", t.Path), slog.String("error", err.Error()))
			} else {
				t.Completed = rm.Completed()
				return t, nil
			}
		}
	}

	if c.toggler != nil {
		if err := c.toggler.ToggleTask(ctx, t.Path, t.Line); err != nil {
			c.logger.Warn("toggle: task toggle failed", slog.String("path", t.Path), slog.String("error", err.Error()))
		} else {
			select {
			case <-time.After(c.settle):
			case <-ctx.Done():
				return task.Task{}, ctx.Err()
			}
			if c.verify(t, want) {
				return c.updated(t), nil
			}
			c.logger.Warn("toggle: task toggle did not take", slog.String("path", t.Path))
		}
	}

	// Direct substitution. The line is re-read so a service that half-acted
	// is not flipped twice.
	content, err = c.vault.Read(t.Path)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", ErrToggle, err)
	}
	lines = task.Lines(content)
	if t.Line >= len(lines) {
		return task.Task{}, ErrStale
	}
	if m, ok := task.MatchLine(lines[t.Line]); ok && m.Completed() == want {
		return c.updated(t), nil
	}
	flipped, err := task.Flip(lines[t.Line])
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", ErrToggle, err)
	}
	lines[t.Line] = flipped
	if err := c.vault.Write(t.Path, strings.Join(lines, "\n")); err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", ErrToggle, err)
	}
	return c.updated(t), nil
}

// verify re-reads the note and reports whether the line reached the wanted
// completion state.
func (c *Chain) verify(t task.Task, want bool) bool {
	content, err := c.vault.Read(t.Path)
	if err != nil {
		return false
	}
	lines := task.Lines(content)
	if t.Line >= len(lines) {
		return false
	}
	m, ok := task.MatchLine(lines[t.Line])
	return ok && m.Completed() == want
}

func (c *Chain) updated(t task.Task) task.Task {
	t.Completed = !t.Completed
	return t
}
