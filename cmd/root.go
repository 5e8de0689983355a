package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/create"
	"github.com/chris-regnier/calctl/internal/index"
	"github.com/chris-regnier/calctl/internal/source"
	"github.com/chris-regnier/calctl/internal/toggle"
	"github.com/chris-regnier/calctl/internal/ui"
	"github.com/chris-regnier/calctl/internal/vault"
)

var (
	cfgFile    string
	jsonOutput bool
	verbose    bool

	appConfig   *config.Settings
	appVault    *vault.Vault
	indexClient *index.Client
	taskSource  *source.Loader
	taskToggle  *toggle.Chain
	taskCreate  *create.Creator
	logger      *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "calctl",
	Short: "A calendar view over the tasks in a markdown note vault",
	Long: `calctl collects the calendar-marked checklist tasks of a markdown note
vault and renders them as a month calendar. On a terminal it opens the
interactive calendar; piped or redirected, it prints the current month.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		appConfig = cfg
		return wireApp(stderrLogger())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeIndex()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			// Non-TTY: fall back to the current month as text
			return monthRun(os.Stdout, time.Now())
		}
		// The alt screen owns the terminal, so logging moves off stderr.
		if err := wireApp(tuiLogger()); err != nil {
			return err
		}
		return ui.RunTUI(cmd.Context(), ui.App{
			Vault:  appVault,
			Config: appConfig,
			Source: taskSource,
			Toggle: taskToggle,
			Create: taskCreate,
			Logger: logger,
		})
	},
}

// wireApp opens the vault and builds the task pipeline against the loaded
// config. A nil *index.Client stored in an interface would not compare equal
// to nil anymore, so the collaborator assignments stay conditional.
func wireApp(log *slog.Logger) error {
	v, err := vault.Open(appConfig.Vault, log)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}
	appVault = v

	closeIndex()
	indexClient = index.New(appConfig.Index, log)

	var lister source.Lister
	var rewriter toggle.Rewriter
	var toggler toggle.Toggler
	var drafter create.Drafter
	if indexClient != nil {
		lister = indexClient
		rewriter = indexClient
		toggler = indexClient
		drafter = indexClient
	}

	taskSource = source.New(v, appConfig, lister, log)
	taskToggle = toggle.New(v, rewriter, toggler, log)
	taskCreate = create.New(v, appConfig, drafter, log)
	logger = log
	return nil
}

func closeIndex() error {
	if indexClient == nil {
		return nil
	}
	err := indexClient.Close()
	indexClient = nil
	return err
}

// stderrLogger is the CLI logger: warnings only, everything with --verbose.
func stderrLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// tuiLogger keeps stderr clean while the alt screen is up. Verbose runs log
// to a file under the vault instead.
func tuiLogger() *slog.Logger {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	if !verbose {
		return discard
	}
	dir := filepath.Join(appVault.Root(), ".calctl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return discard
	}
	f, err := os.OpenFile(filepath.Join(dir, "calctl.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return discard
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	// Silence Cobra's built-in error and usage printing so we control stderr output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}
