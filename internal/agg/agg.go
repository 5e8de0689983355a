package agg

import (
	"time"

	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/task"
)

// List is one load cycle's aggregated task collection. It is rebuilt from
// scratch on every reload and never mutated in place.
type List struct {
	tasks []task.Task
}

// Aggregate filters raw discoveries down to calendar-marked tasks and
// deduplicates by (path, line), keeping the first occurrence. Input order
// is preserved so output is deterministic.
func Aggregate(raw []task.Task) *List {
	seen := make(map[string]struct{}, len(raw))
	out := make([]task.Task, 0, len(raw))
	for _, t := range raw {
		// Second-pass marker filter; sources should have applied it
		// already, but index entries are not trusted.
		if !t.HasCalendarMarker() {
			continue
		}
		k := t.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return &List{tasks: out}
}

// All returns the aggregated tasks in stable order.
func (l *List) All() []task.Task {
	return l.tasks
}

// Len returns the number of aggregated tasks.
func (l *List) Len() int {
	return len(l.tasks)
}

// TasksOnDate returns the tasks of one calendar day. When d is strictly
// before today, incomplete tasks are excluded because they migrate to the
// overdue bucket; completed ones remain visible on their day.
func (l *List) TasksOnDate(d, today time.Time) []task.Task {
	var out []task.Task
	for _, t := range l.tasks {
		if !date.SameDay(t.Date, d) {
			continue
		}
		if !t.Completed && date.BeforeDay(d, today) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// OverdueTasks returns every incomplete task dated strictly before today,
// regardless of folder or month boundaries.
func (l *List) OverdueTasks(today time.Time) []task.Task {
	var out []task.Task
	for _, t := range l.tasks {
		if !t.Completed && date.BeforeDay(t.Date, today) {
			out = append(out, t)
		}
	}
	return out
}
