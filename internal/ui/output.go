package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/grid"
	"github.com/chris-regnier/calctl/internal/locale"
	"github.com/chris-regnier/calctl/internal/task"
)

// FormatCreated formats the confirmation after a quick-add landed.
func FormatCreated(w io.Writer, t task.Task) {
	fmt.Fprintf(w, "Added task to %s:%d\n", t.Path, t.Line)
}

// FormatToggled formats the confirmation after a toggle resolved.
func FormatToggled(w io.Writer, t task.Task) {
	fmt.Fprintf(w, "Toggled %s:%d to %s\n", t.Path, t.Line, marker(t))
}

// FormatTaskList formats tasks as one row each: completion marker, due
// date, an overdue flag, the first text line, and the path:line reference
// a toggle command takes back.
func FormatTaskList(w io.Writer, ts []task.Task, today time.Time) {
	if len(ts) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	for _, t := range ts {
		fmt.Fprintf(w, "%s  %s%s  %-50s  %s:%d\n",
			marker(t),
			t.Date.Format("2006-01-02"),
			overdueFlag(t, today),
			preview(t, 50),
			t.Path, t.Line,
		)
	}
}

// DayTasks pairs a date with its tasks for grouped formatting.
type DayTasks struct {
	Date  time.Time
	Tasks []task.Task
}

// GroupByDay splits an already-sorted task list into per-day groups,
// preserving order.
func GroupByDay(ts []task.Task) []DayTasks {
	var days []DayTasks
	for _, t := range ts {
		if n := len(days); n > 0 && date.SameDay(days[n-1].Date, t.Date) {
			days[n-1].Tasks = append(days[n-1].Tasks, t)
			continue
		}
		days = append(days, DayTasks{Date: t.Date, Tasks: []task.Task{t}})
	}
	return days
}

// FormatDaySummary formats grouped-by-day tasks as plain text.
func FormatDaySummary(w io.Writer, days []DayTasks, today time.Time) {
	if len(days) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	for i, d := range days {
		label := "tasks"
		if len(d.Tasks) == 1 {
			label = "task"
		}
		fmt.Fprintf(w, "── %s (%d %s) ──────────\n",
			d.Date.Format("2006-01-02"), len(d.Tasks), label)
		for _, t := range d.Tasks {
			fmt.Fprintf(w, "  %s%s  %-50s  %s:%d\n",
				marker(t), overdueFlag(t, today), preview(t, 50), t.Path, t.Line)
		}
		if i < len(days)-1 {
			fmt.Fprintln(w)
		}
	}
}

// FormatMonth renders the month grid as plain text for non-interactive
// terminals: the calendar with per-day task counts, then the month's tasks
// grouped by day.
func FormatMonth(w io.Writer, cells []grid.Cell, month, today time.Time, lang string) {
	fmt.Fprintf(w, "%s %d\n", locale.MonthName(lang, month.Month()), month.Year())
	fmt.Fprintln(w, strings.Join(locale.WeekdayHeaders(lang), "      "))

	for row := 0; row < grid.Rows; row++ {
		var b strings.Builder
		for col := 0; col < grid.Columns; col++ {
			c := cells[row*grid.Columns+col]
			day := fmt.Sprintf("%2d", c.Date.Day())
			if !c.InMonth {
				day = "  "
			}
			mark := "   "
			if n := len(c.Visible); n > 0 && c.InMonth {
				mark = fmt.Sprintf(":%-2d", n)
			}
			cursor := " "
			if c.IsToday {
				cursor = ">"
			}
			b.WriteString(fmt.Sprintf("%s%s%s  ", cursor, day, mark))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	var monthTasks []task.Task
	for _, c := range cells {
		if !c.InMonth {
			continue
		}
		monthTasks = append(monthTasks, c.Visible...)
	}
	if len(monthTasks) > 0 {
		fmt.Fprintln(w)
		FormatDaySummary(w, GroupByDay(monthTasks), today)
	}
}

// FormatJSON writes any value as JSON to the writer.
func FormatJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// TaskSummary is the JSON representation of one task.
type TaskSummary struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Text      string `json:"text"`
	Due       string `json:"due"`
	Completed bool   `json:"completed"`
	Overdue   bool   `json:"overdue"`
}

// ToSummaries converts tasks to summary format for JSON output.
func ToSummaries(ts []task.Task, today time.Time) []TaskSummary {
	summaries := make([]TaskSummary, len(ts))
	for i, t := range ts {
		summaries[i] = TaskSummary{
			Path:      t.Path,
			Line:      t.Line,
			Text:      t.Text,
			Due:       t.Date.Format("2006-01-02"),
			Completed: t.Completed,
			Overdue:   !t.Completed && date.BeforeDay(t.Date, today),
		}
	}
	return summaries
}

// DayGroupJSON is the JSON representation of one day's tasks.
type DayGroupJSON struct {
	Date  string        `json:"date"`
	Count int           `json:"count"`
	Tasks []TaskSummary `json:"tasks"`
}

// BuildDayGroups creates DayGroupJSON slices from per-day groups.
func BuildDayGroups(days []DayTasks, today time.Time) []DayGroupJSON {
	groups := make([]DayGroupJSON, len(days))
	for i, d := range days {
		groups[i] = DayGroupJSON{
			Date:  d.Date.Format("2006-01-02"),
			Count: len(d.Tasks),
			Tasks: ToSummaries(d.Tasks, today),
		}
	}
	return groups
}

func marker(t task.Task) string {
	if t.Completed {
		return "[x]"
	}
	return "[ ]"
}

func overdueFlag(t task.Task, today time.Time) string {
	if !t.Completed && date.BeforeDay(t.Date, today) {
		return "!"
	}
	return " "
}

func preview(t task.Task, n int) string {
	text := strings.TrimSpace(date.StripTokens(t.FirstLine()))
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n-1]) + "…"
}
