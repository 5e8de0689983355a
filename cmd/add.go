package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/ui"
)

var addDateFlag string

var addCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Add a task",
	Long: `Append a checklist task to the month note its due date belongs to.

The due date comes from a date token inside the text, from --date, or
defaults to today. If "-" is provided, the task text is read from stdin.`,
	Example: `  calctl add Water the plants
  calctl add "Pay rent 📅 2026-03-01"
  calctl add Buy oats --date 2026-03-14
  echo "Call the plumber" | calctl add -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		if len(args) == 1 && args[0] == "-" {
			line, err := readLine(os.Stdin)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error reading stdin:", err)
				os.Exit(2)
			}
			text = line
		} else {
			text = strings.Join(args, " ")
		}

		due := date.Midnight(time.Now())
		if addDateFlag != "" {
			d, err := time.ParseInLocation("2006-01-02", addDateFlag, time.Local)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error: invalid date format (use YYYY-MM-DD):", addDateFlag)
				os.Exit(1)
			}
			due = date.Midnight(d)
		}

		return addRun(os.Stdout, text, due)
	},
}

func addRun(w io.Writer, text string, due time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty task text")
	}

	created, err := taskCreate.FromText(text, due)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	if jsonOutput {
		today := date.Midnight(time.Now())
		return ui.FormatJSON(w, ui.ToSummaries([]task.Task{created}, today)[0])
	}
	ui.FormatCreated(w, created)
	return nil
}

func readLine(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func init() {
	addCmd.Flags().StringVar(&addDateFlag, "date", "", "due date (YYYY-MM-DD)")
	rootCmd.AddCommand(addCmd)
}
