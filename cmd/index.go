package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/chris-regnier/calctl/internal/indexer"
	"github.com/chris-regnier/calctl/internal/ui"
)

var indexDB string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Bundled index service",
}

var indexServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bundled index service on stdio",
	Long: `Start the bundled MCP index service on stdio transport. It scans the
vault into a libSQL task database, reindexes when the vault changes, and
serves the list_tasks, toggle_line, toggle_task, and draft_task tools.

Point the calendar at it in the config file:

  [index]
  command = ["calctl", "index", "serve"]`,
	RunE: runIndexServe,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index database once",
	Example: `  calctl index rebuild
  calctl index rebuild --db /tmp/index.db`,
	RunE: runIndexRebuild,
}

func runIndexServe(cmd *cobra.Command, args []string) error {
	store, err := openIndexStore()
	if err != nil {
		return err
	}
	defer store.Close()

	// stdout carries the MCP protocol; everything else goes to stderr.
	log := stderrLogger()
	svc := indexer.NewService(appVault, appConfig, store, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Reindex(ctx); err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	go func() {
		if err := svc.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Warn("index: watch stopped", slog.String("error", err.Error()))
		}
	}()

	log.Info("index: serving on stdio", slog.String("db", indexDBPath()))
	return svc.Serve(ctx, &mcp.StdioTransport{})
}

type rebuildInfo struct {
	DB    string `json:"db"`
	Tasks int    `json:"tasks"`
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	store, err := openIndexStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svc := indexer.NewService(appVault, appConfig, store, logger)
	if err := svc.Reindex(context.Background()); err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	rows, err := store.All()
	if err != nil {
		return err
	}

	if jsonOutput {
		return ui.FormatJSON(os.Stdout, rebuildInfo{DB: indexDBPath(), Tasks: len(rows)})
	}
	fmt.Printf("Indexed %d tasks into %s\n", len(rows), indexDBPath())
	return nil
}

// indexDBPath picks the database location: --db flag, config, then the
// vault-local default.
func indexDBPath() string {
	if indexDB != "" {
		return indexDB
	}
	if appConfig.Index.DB != "" {
		return appConfig.Index.DB
	}
	return filepath.Join(appVault.Root(), ".calctl", "index.db")
}

func openIndexStore() (*indexer.Store, error) {
	store, err := indexer.OpenStore(indexDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	return store, nil
}

func init() {
	indexCmd.PersistentFlags().StringVar(&indexDB, "db", "", "index database path")
	indexCmd.AddCommand(indexServeCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(indexCmd)
}
