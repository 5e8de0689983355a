package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestStatusRunSummarizesVault(t *testing.T) {
	setupTestEnv(t)

	yesterday := time.Now().AddDate(0, 0, -1)
	tomorrow := time.Now().AddDate(0, 0, 1)
	writeNote(t, "todo.md", strings.Join([]string{
		taskLine("Missed deadline", yesterday, false),
		taskLine("Upcoming deadline", tomorrow, false),
		taskLine("Finished errand", tomorrow, true),
	}, "\n"))
	writeNote(t, "notes/journal.md", "# Journal\n\nNo tasks here.")

	var buf bytes.Buffer
	if err := statusRun(&buf); err != nil {
		t.Fatalf("statusRun: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, appVault.Root()) {
		t.Errorf("output missing vault root:\n%s", out)
	}
	if !strings.Contains(out, "(2 notes)") {
		t.Errorf("output missing note count:\n%s", out)
	}
	if !strings.Contains(out, "3 (1 overdue, 1 completed)") {
		t.Errorf("output missing task counts:\n%s", out)
	}
	if !strings.Contains(out, "raw scan (no service configured)") {
		t.Errorf("output missing index line:\n%s", out)
	}
}

func TestStatusRunJSON(t *testing.T) {
	setupTestEnv(t)
	jsonOutput = true

	tomorrow := time.Now().AddDate(0, 0, 1)
	writeNote(t, "todo.md", taskLine("Upcoming deadline", tomorrow, false))

	var buf bytes.Buffer
	if err := statusRun(&buf); err != nil {
		t.Fatalf("statusRun: %v", err)
	}

	var info statusInfo
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("JSON unmarshal: %v", err)
	}
	if info.Vault != appVault.Root() {
		t.Errorf("vault = %q, want %q", info.Vault, appVault.Root())
	}
	if info.Notes != 1 || info.Tasks != 1 || info.Overdue != 0 || info.Completed != 0 {
		t.Errorf("counts = %+v", info)
	}
	if info.Config == "" {
		t.Errorf("config path empty")
	}
}
