package task

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chris-regnier/calctl/internal/date"
)

var (
	// ErrNoChecklist reports a line that does not match the checklist
	// syntax. Scans skip such lines; a direct-edit toggle cannot.
	ErrNoChecklist = errors.New("not a checklist line")

	// ErrLineOutOfRange reports a stale line index, usually after an
	// out-of-band edit shortened the note.
	ErrLineOutOfRange = errors.New("line out of range")
)

// checklistLine is the bit-exact task syntax: optional indentation, a "-" or
// "*" bullet, one space, a bracketed completion marker, and the body. The
// marker set is case-sensitive.
var checklistLine = regexp.MustCompile(`^([ \t]*)([-*]) \[([ xX✓✔])\] ?(.*)$`)

// Task is one discovered checklist item. (Path, Line) is its identity for
// the lifetime of a load cycle; nothing about a Task is persisted.
type Task struct {
	Text      string
	Date      time.Time
	Path      string
	Line      int
	Completed bool
}

// Key returns the dedup identity of the task.
func (t Task) Key() string {
	return fmt.Sprintf("%s:%d", t.Path, t.Line)
}

// FirstLine returns the task body's first line, for single-row display.
func (t Task) FirstLine() string {
	if i := strings.IndexByte(t.Text, '\n'); i >= 0 {
		return t.Text[:i]
	}
	return t.Text
}

// HasCalendarMarker reports whether the task text carries the calendar
// sentinel that gates aggregation.
func (t Task) HasCalendarMarker() bool {
	return strings.Contains(t.Text, date.CalendarMarker)
}

// Match holds the parsed parts of one checklist line.
type Match struct {
	Indent string
	Bullet string
	Marker string
	Body   string
}

// Completed reports whether the marker denotes a finished task. Anything
// but the blank marker counts as completed.
func (m Match) Completed() bool {
	return m.Marker != " "
}

// MatchLine parses a single line against the checklist syntax.
func MatchLine(line string) (Match, bool) {
	sub := checklistLine.FindStringSubmatch(line)
	if sub == nil {
		return Match{}, false
	}
	return Match{Indent: sub[1], Bullet: sub[2], Marker: sub[3], Body: sub[4]}, true
}

// Lines splits note content for line-index addressing.
func Lines(content string) []string {
	return strings.Split(content, "\n")
}

// Capture returns the checklist body at lines[idx] plus its nested block:
// every immediately-following line indented strictly deeper than the task
// line, with blank lines always included, stopping at the first non-blank
// line whose indentation is not deeper.
func Capture(lines []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(lines) {
		return "", false
	}
	m, ok := MatchLine(lines[idx])
	if !ok {
		return "", false
	}

	parts := []string{m.Body}
	depth := indentWidth(m.Indent)
	for j := idx + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == "" {
			parts = append(parts, lines[j])
			continue
		}
		if indentWidth(leadingWhitespace(lines[j])) <= depth {
			break
		}
		parts = append(parts, lines[j])
	}
	return strings.Join(parts, "\n"), true
}

// Flip rewrites a checklist line with its completion marker toggled: the
// blank marker becomes "x", every completed marker becomes blank.
func Flip(line string) (string, error) {
	m, ok := MatchLine(line)
	if !ok {
		return "", ErrNoChecklist
	}
	marker := "x"
	if m.Completed() {
		marker = " "
	}
	out := m.Indent + m.Bullet + " [" + marker + "]"
	if m.Body != "" {
		out += " " + m.Body
	}
	return out, nil
}

// Compose builds a canonical new task line, appending the due-date token
// when a date is given. Text that already carries a date token keeps it; the
// token in the text wins.
func Compose(text string, due time.Time) string {
	line := "- [ ] " + strings.TrimSpace(text)
	if _, ok := date.Extract(line); ok {
		return line
	}
	if !due.IsZero() {
		line = AppendDueToken(line, due)
	}
	return line
}

// AppendDueToken adds the calendar-marker due token to a line.
func AppendDueToken(line string, due time.Time) string {
	return strings.TrimRight(line, " \t") + " " + date.CalendarMarker + " " + due.Format("2006-01-02")
}

func leadingWhitespace(s string) string {
	for i, r := range s {
		if r != ' ' && r != '\t' {
			return s[:i]
		}
	}
	return s
}

func indentWidth(s string) int {
	return utf8.RuneCountInString(s)
}
