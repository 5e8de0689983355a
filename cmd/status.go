package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/ui"
)

// statusInfo is the health summary for both text and JSON output.
type statusInfo struct {
	Config    string `json:"config"`
	Vault     string `json:"vault"`
	Notes     int    `json:"notes"`
	Tasks     int    `json:"tasks"`
	Overdue   int    `json:"overdue"`
	Completed int    `json:"completed"`
	Index     string `json:"index"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault and index service health",
	Long: `Show where config and vault live, how many notes and tasks were found,
and whether the configured index service answers.`,
	Example: `  calctl status
  calctl status --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd.OutOrStdout())
	},
}

func statusRun(w io.Writer) error {
	ctx := context.Background()
	info := statusInfo{
		Config: appConfig.Path(),
		Vault:  appVault.Root(),
	}
	if info.Config == "" {
		info.Config = "(defaults)"
	}

	notes, err := appVault.List()
	if err != nil {
		return fmt.Errorf("listing vault: %w", err)
	}
	info.Notes = len(notes)

	list, err := taskSource.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	today := date.Midnight(time.Now())
	info.Tasks = list.Len()
	info.Overdue = len(list.OverdueTasks(today))
	for _, t := range list.All() {
		if t.Completed {
			info.Completed++
		}
	}
	info.Index = indexStatus(ctx)

	if jsonOutput {
		return ui.FormatJSON(w, info)
	}

	fmt.Fprintf(w, "Config:  %s\n", info.Config)
	fmt.Fprintf(w, "Vault:   %s (%d notes)\n", info.Vault, info.Notes)
	fmt.Fprintf(w, "Tasks:   %d (%d overdue, %d completed)\n", info.Tasks, info.Overdue, info.Completed)
	fmt.Fprintf(w, "Index:   %s\n", info.Index)
	return nil
}

// indexStatus probes the configured service with one bounded call.
func indexStatus(ctx context.Context) string {
	if indexClient == nil {
		return "raw scan (no service configured)"
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tasks, err := indexClient.ListTasks(ctx)
	if err != nil {
		return fmt.Sprintf("unreachable (%v)", err)
	}
	return fmt.Sprintf("serving (%d tasks)", len(tasks))
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
