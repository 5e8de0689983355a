package grid

import (
	"sort"
	"time"

	"github.com/chris-regnier/calctl/internal/agg"
	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/task"
)

const (
	// Columns is the week width; weeks start on Monday.
	Columns = 7
	// Rows is fixed at six so every month renders at the same height.
	Rows = 6
	// Cells is the invariant grid size.
	Cells = Columns * Rows
	// MaxCellTasks caps how many tasks a cell shows before the badge.
	MaxCellTasks = 4
)

// Cell is one slot of the month grid.
type Cell struct {
	Date    time.Time
	InMonth bool
	IsToday bool
	// Tasks is the full sorted day list; the detail popup receives it
	// untruncated.
	Tasks []task.Task
	// Visible is Tasks capped at MaxCellTasks; Extra counts the rest.
	Visible []task.Task
	Extra   int
}

// MonthOf returns the first day of t's month at midnight.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Shift moves a month anchor by delta months.
func Shift(month time.Time, delta int) time.Time {
	m := MonthOf(month)
	return time.Date(m.Year(), m.Month()+time.Month(delta), 1, 0, 0, 0, 0, m.Location())
}

// Day returns one day's task list exactly as its grid cell carries it:
// today's overdue bucket prepended, showCompleted applied, stable
// incomplete-first order. The detail popup re-queries through this on day
// navigation so it always matches the grid.
func Day(d, today time.Time, list *agg.List, showCompleted bool) []task.Task {
	tasks := list.TasksOnDate(d, today)
	if date.SameDay(d, today) {
		tasks = append(list.OverdueTasks(today), tasks...)
	}
	if !showCompleted {
		tasks = dropCompleted(tasks)
	}
	sortIncompleteFirst(tasks)
	return tasks
}

// Build derives the 42-cell grid for the month containing anchor. The first
// cell is always the Monday on or before the 1st; cells outside the month
// are populated but flagged. Today's cell carries the overdue bucket
// prepended to its own tasks. Cell lists honor showCompleted and sort
// incomplete-first, stably, with no secondary key.
func Build(anchor, today time.Time, list *agg.List, showCompleted bool) []Cell {
	first := MonthOf(anchor)
	offset := (int(first.Weekday()) + 6) % 7
	start := first.AddDate(0, 0, -offset)

	cells := make([]Cell, Cells)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		c := Cell{
			Date:    d,
			InMonth: d.Month() == first.Month() && d.Year() == first.Year(),
			IsToday: date.SameDay(d, today),
		}

		tasks := Day(d, today, list, showCompleted)
		c.Tasks = tasks
		if len(tasks) > MaxCellTasks {
			c.Visible = tasks[:MaxCellTasks]
			c.Extra = len(tasks) - MaxCellTasks
		} else {
			c.Visible = tasks
		}
		cells[i] = c
	}
	return cells
}

func dropCompleted(ts []task.Task) []task.Task {
	out := ts[:0:0]
	for _, t := range ts {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

func sortIncompleteFirst(ts []task.Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		return !ts[i].Completed && ts[j].Completed
	})
}
