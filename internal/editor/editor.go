package editor

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/browser"

	"github.com/chris-regnier/calctl/internal/config"
)

// ResolveEditor determines which editor to use based on config, env vars, and fallback.
func ResolveEditor(configEditor string) string {
	if configEditor != "" {
		return configEditor
	}
	if ed := os.Getenv("EDITOR"); ed != "" {
		return ed
	}
	if ed := os.Getenv("VISUAL"); ed != "" {
		return ed
	}
	return "vi"
}

// lineFlagEditors accept a +N argument to place the cursor.
var lineFlagEditors = map[string]bool{
	"vi": true, "vim": true, "nvim": true, "gvim": true,
	"nano": true, "emacs": true, "micro": true, "kak": true,
}

func buildArgs(editorCmd, path string, line int) (string, []string, error) {
	parts := strings.Fields(editorCmd)
	if len(parts) == 0 {
		return "", nil, errors.New("empty editor command")
	}
	args := parts[1:]
	if line >= 0 && lineFlagEditors[filepath.Base(parts[0])] {
		args = append(args, fmt.Sprintf("+%d", line+1))
	}
	return parts[0], append(args, path), nil
}

// Command prepares the editor invocation without running it, for callers
// that hand the process off to a terminal program runner.
func Command(editorCmd, path string, line int) (*exec.Cmd, error) {
	name, args, err := buildArgs(editorCmd, path, line)
	if err != nil {
		return nil, err
	}
	return exec.Command(name, args...), nil
}

// Open launches the editor on path, placing the cursor at the zero-based
// line when the editor takes a +N argument. Pass a negative line to skip
// cursor placement.
func Open(editorCmd, path string, line int) error {
	cmd, err := Command(editorCmd, path, line)
	if err != nil {
		return err
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}
	return nil
}

// ObsidianURL builds the obsidian:// URL that opens a vault note.
func ObsidianURL(vaultRoot, rel string) string {
	return "obsidian://open?path=" + url.QueryEscape(filepath.Join(vaultRoot, rel))
}

// OpenNote opens a vault note with the configured opener: the editor at the
// task's line, or Obsidian via its URL scheme.
func OpenNote(cfg *config.Settings, vaultRoot, rel string, line int) error {
	if cfg.OpenWith == "obsidian" {
		return browser.OpenURL(ObsidianURL(vaultRoot, rel))
	}
	return Open(ResolveEditor(cfg.Editor), filepath.Join(vaultRoot, rel), line)
}
