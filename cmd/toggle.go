package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/ui"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <path:line>",
	Short: "Toggle a task's completion state",
	Long: `Flip the checkbox of the task at a vault-relative path and zero-based
line number, exactly as list and today print it.`,
	Example: `  calctl toggle notes/2026-03.md:12
  calctl toggle tasks/2026-03.md:4 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rel, line, err := splitTaskRef(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return toggleRun(os.Stdout, rel, line)
	},
}

func toggleRun(w io.Writer, rel string, line int) error {
	ctx := context.Background()
	list, err := taskSource.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}

	var target task.Task
	found := false
	for _, t := range list.All() {
		if t.Path == rel && t.Line == line {
			target = t
			found = true
			break
		}
	}
	if !found {
		fmt.Fprintf(os.Stderr, "Error: no task at %s:%d\n", rel, line)
		os.Exit(1)
	}

	updated, err := taskToggle.Apply(ctx, target)
	if err != nil {
		return fmt.Errorf("toggling %s:%d: %w", rel, line, err)
	}

	if jsonOutput {
		today := date.Midnight(time.Now())
		return ui.FormatJSON(w, ui.ToSummaries([]task.Task{updated}, today)[0])
	}
	ui.FormatToggled(w, updated)
	return nil
}

// splitTaskRef parses "path:line". The split is on the last colon so paths
// containing colons survive; the line number is zero-based.
func splitTaskRef(ref string) (string, int, error) {
	i := strings.LastIndex(ref, ":")
	if i <= 0 || i == len(ref)-1 {
		return "", 0, fmt.Errorf("invalid task reference %q (want path:line)", ref)
	}
	line, err := strconv.Atoi(ref[i+1:])
	if err != nil || line < 0 {
		return "", 0, fmt.Errorf("invalid line number in %q", ref)
	}
	return ref[:i], line, nil
}

func init() {
	rootCmd.AddCommand(toggleCmd)
}
