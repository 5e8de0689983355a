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
	"github.com/chris-regnier/calctl/internal/ui"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "List today's tasks",
	Long: `List the tasks of today's calendar cell: the overdue backlog first,
then whatever is due today.`,
	Example: `  calctl today
  calctl today --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return todayRun(os.Stdout)
	},
}

func todayRun(w io.Writer) error {
	list, err := taskSource.Load(context.Background())
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}

	today := date.Midnight(time.Now())
	tasks := grid.Day(today, today, list, appConfig.ShowCompleted)

	if jsonOutput {
		return ui.FormatJSON(w, ui.ToSummaries(tasks, today))
	}

	var buf bytes.Buffer
	ui.FormatTaskList(&buf, tasks, today)
	return ui.OutputOrPage(w, buf.String(), false)
}

func init() {
	rootCmd.AddCommand(todayCmd)
}
