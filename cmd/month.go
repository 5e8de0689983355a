package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/grid"
	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/ui"
)

var monthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Print a month of tasks",
	Long: `Print the month calendar with per-day task counts, followed by the
month's tasks grouped by day. Defaults to the current month.`,
	Example: `  calctl month
  calctl month 2026-03
  calctl month --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		anchor := time.Now()
		if len(args) == 1 {
			t, err := time.ParseInLocation("2006-01", args[0], time.Local)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error: invalid month format (use YYYY-MM):", args[0])
				os.Exit(1)
			}
			anchor = t
		}
		return monthRun(os.Stdout, anchor)
	},
}

func monthRun(w io.Writer, anchor time.Time) error {
	list, err := taskSource.Load(context.Background())
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}

	today := date.Midnight(time.Now())
	month := grid.MonthOf(anchor)
	cells := grid.Build(month, today, list, appConfig.ShowCompleted)

	if jsonOutput {
		days := ui.GroupByDay(monthTasks(cells))
		return ui.FormatJSON(w, ui.BuildDayGroups(days, today))
	}

	var buf bytes.Buffer
	ui.FormatMonth(&buf, cells, month, today, appConfig.Language)
	return ui.OutputOrPage(w, buf.String(), false)
}

// monthTasks flattens the full day lists of the in-month cells.
func monthTasks(cells []grid.Cell) []task.Task {
	var ts []task.Task
	for _, c := range cells {
		if !c.InMonth {
			continue
		}
		ts = append(ts, c.Tasks...)
	}
	return ts
}

func init() {
	rootCmd.AddCommand(monthCmd)
}
