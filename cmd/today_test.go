package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/chris-regnier/calctl/internal/ui"
)

func TestTodayRunOverdueFirst(t *testing.T) {
	setupTestEnv(t)

	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)
	writeNote(t, "todo.md", strings.Join([]string{
		taskLine("Due today", now, false),
		taskLine("Missed yesterday", yesterday, false),
	}, "\n"))

	var buf bytes.Buffer
	if err := todayRun(&buf); err != nil {
		t.Fatalf("todayRun: %v", err)
	}
	out := buf.String()

	oi := strings.Index(out, "Missed yesterday")
	ti := strings.Index(out, "Due today")
	if oi < 0 || ti < 0 {
		t.Fatalf("output missing tasks:\n%s", out)
	}
	if oi > ti {
		t.Errorf("overdue task not listed first:\n%s", out)
	}
}

func TestTodayRunCompletedLast(t *testing.T) {
	setupTestEnv(t)

	now := time.Now()
	writeNote(t, "todo.md", strings.Join([]string{
		taskLine("Already done", now, true),
		taskLine("Still open", now, false),
	}, "\n"))

	var buf bytes.Buffer
	if err := todayRun(&buf); err != nil {
		t.Fatalf("todayRun: %v", err)
	}
	out := buf.String()

	di := strings.Index(out, "Already done")
	oi := strings.Index(out, "Still open")
	if di < 0 || oi < 0 {
		t.Fatalf("output missing tasks:\n%s", out)
	}
	if oi > di {
		t.Errorf("incomplete task should sort before completed:\n%s", out)
	}
}

func TestTodayRunHonorsShowCompleted(t *testing.T) {
	setupTestEnv(t)
	appConfig.ShowCompleted = false

	now := time.Now()
	writeNote(t, "todo.md", strings.Join([]string{
		taskLine("Already done", now, true),
		taskLine("Still open", now, false),
	}, "\n"))

	var buf bytes.Buffer
	if err := todayRun(&buf); err != nil {
		t.Fatalf("todayRun: %v", err)
	}
	if strings.Contains(buf.String(), "Already done") {
		t.Errorf("completed task shown with show_completed off:\n%s", buf.String())
	}
}

func TestTodayRunEmpty(t *testing.T) {
	setupTestEnv(t)

	var buf bytes.Buffer
	if err := todayRun(&buf); err != nil {
		t.Fatalf("todayRun: %v", err)
	}
	if !strings.Contains(buf.String(), "No tasks found.") {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}

func TestTodayRunJSON(t *testing.T) {
	setupTestEnv(t)
	jsonOutput = true

	yesterday := time.Now().AddDate(0, 0, -1)
	writeNote(t, "todo.md", taskLine("Missed yesterday", yesterday, false))

	var buf bytes.Buffer
	if err := todayRun(&buf); err != nil {
		t.Fatalf("todayRun: %v", err)
	}

	var summaries []ui.TaskSummary
	if err := json.Unmarshal(buf.Bytes(), &summaries); err != nil {
		t.Fatalf("JSON unmarshal: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if !summaries[0].Overdue {
		t.Errorf("overdue flag not set on backlog task")
	}
}
