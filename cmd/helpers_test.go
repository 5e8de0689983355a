package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/create"
	"github.com/chris-regnier/calctl/internal/source"
	"github.com/chris-regnier/calctl/internal/toggle"
	"github.com/chris-regnier/calctl/internal/vault"
)

// setupTestEnv wires the package globals against a throwaway vault, with no
// index service configured. Every test calls it first.
func setupTestEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()

	appConfig = &config.Settings{
		Vault:         dir,
		DateFormat:    "YYYY-MM",
		ShowCompleted: true,
		Language:      "en",
		Theme:         "default-dark",
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	v, err := vault.Open(dir, log)
	if err != nil {
		t.Fatalf("opening test vault: %v", err)
	}

	appVault = v
	indexClient = nil
	taskSource = source.New(v, appConfig, nil, log)
	taskToggle = toggle.New(v, nil, nil, log)
	taskCreate = create.New(v, appConfig, nil, log)
	logger = log
	jsonOutput = false
	verbose = false
}

// writeNote writes a vault note and returns its relative path.
func writeNote(t *testing.T, rel, content string) string {
	t.Helper()
	if dir := filepath.Dir(rel); dir != "." {
		if err := appVault.MkdirAll(dir); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
	}
	if err := appVault.Write(rel, content); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
	return rel
}

// taskLine composes a calendar-marked checklist line for fixtures.
func taskLine(text string, due time.Time, completed bool) string {
	mark := " "
	if completed {
		mark = "x"
	}
	return fmt.Sprintf("- [%s] %s 📅 %s", mark, text, due.Format("2006-01-02"))
}
