package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/ui"
)

var (
	listDate      string
	listOverdue   bool
	listCompleted bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List the tasks found in the vault, one row each, sorted by due date.
Completed tasks are hidden unless --completed.`,
	Example: `  calctl list
  calctl list --date 2026-03-14
  calctl list --overdue
  calctl list --completed
  calctl list --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var day *time.Time
		if listDate != "" {
			t, err := time.ParseInLocation("2006-01-02", listDate, time.Local)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error: invalid date format (use YYYY-MM-DD):", listDate)
				os.Exit(1)
			}
			day = &t
		}
		return listRun(os.Stdout, day, listOverdue, listCompleted)
	},
}

func listRun(w io.Writer, day *time.Time, overdueOnly, withCompleted bool) error {
	list, err := taskSource.Load(context.Background())
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	today := date.Midnight(time.Now())

	var tasks []task.Task
	switch {
	case day != nil:
		tasks = list.TasksOnDate(date.Midnight(*day), today)
	case overdueOnly:
		tasks = list.OverdueTasks(today)
	default:
		// Aggregation order is note order; the flat listing sorts by due
		// date on a copy so the list itself stays untouched.
		tasks = append([]task.Task(nil), list.All()...)
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Date.Before(tasks[j].Date)
		})
	}
	if !withCompleted {
		tasks = incompleteOnly(tasks)
	}

	if jsonOutput {
		return ui.FormatJSON(w, ui.ToSummaries(tasks, today))
	}

	var buf bytes.Buffer
	ui.FormatTaskList(&buf, tasks, today)
	return ui.OutputOrPage(w, buf.String(), false)
}

func incompleteOnly(ts []task.Task) []task.Task {
	out := ts[:0:0]
	for _, t := range ts {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

func init() {
	listCmd.Flags().StringVar(&listDate, "date", "", "only tasks due on this day (YYYY-MM-DD)")
	listCmd.Flags().BoolVar(&listOverdue, "overdue", false, "only overdue tasks")
	listCmd.Flags().BoolVar(&listCompleted, "completed", false, "include completed tasks")
	rootCmd.AddCommand(listCmd)
}
