package scan

import (
	"context"
	"testing"
	"time"

	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/vault"
)

func setupTestScanner(t *testing.T, cfg *config.Settings, notes map[string]string) *Scanner {
	t.Helper()
	v, err := vault.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for path, content := range notes {
		if err := v.Write(path, content); err != nil {
			t.Fatal(err)
		}
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = "YYYY-MM"
	}
	return New(v, cfg, nil)
}

func findTask(t *testing.T, tasks []task.Task, path string, line int) task.Task {
	t.Helper()
	for _, tk := range tasks {
		if tk.Path == path && tk.Line == line {
			return tk
		}
	}
	t.Fatalf("no task at %s:%d in %v", path, line, tasks)
	return task.Task{}
}

func TestScanDiscoversMarkedTasks(t *testing.T) {
	s := setupTestScanner(t, &config.Settings{}, map[string]string{
		"2025-03.md": "# March\n- [ ] Buy milk 📅 2025-03-14\n- [x] Done thing 📅 2025-03-02\n- [ ] no marker here\n",
	})

	tasks, err := s.Tasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d: %v", len(tasks), tasks)
	}

	milk := findTask(t, tasks, "2025-03.md", 1)
	if milk.Date.Format("2006-01-02") != "2025-03-14" {
		t.Errorf("date = %s", milk.Date.Format("2006-01-02"))
	}
	if milk.Completed {
		t.Error("open task reported completed")
	}
	if milk.Date.Hour() != 0 || milk.Date.Minute() != 0 {
		t.Error("date not normalized to midnight")
	}

	done := findTask(t, tasks, "2025-03.md", 2)
	if !done.Completed {
		t.Error("completed task reported open")
	}
}

func TestScanCapturesNestedLines(t *testing.T) {
	s := setupTestScanner(t, &config.Settings{}, map[string]string{
		"a.md": "- [ ] plan 📅 2025-03-14\n  - hotel\n  - train\n- [ ] other 📅 2025-03-15\n",
	})

	tasks, err := s.Tasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	plan := findTask(t, tasks, "a.md", 0)
	want := "plan 📅 2025-03-14\n  - hotel\n  - train"
	if plan.Text != want {
		t.Errorf("text = %q, want %q", plan.Text, want)
	}
}

func TestScanRespectsScope(t *testing.T) {
	s := setupTestScanner(t, &config.Settings{NotesFolder: "Tasks"}, map[string]string{
		"Tasks/a.md": "- [ ] in 📅 2025-03-14\n",
		"Other/b.md": "- [ ] out 📅 2025-03-14\n",
	})

	tasks, err := s.Tasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Path != "Tasks/a.md" {
		t.Errorf("scope not respected: %v", tasks)
	}
}

func TestScanFilenameFallback(t *testing.T) {
	s := setupTestScanner(t, &config.Settings{}, map[string]string{
		"2025-03.md": "- [ ] dateless 📅\n",
	})

	tasks, err := s.Tasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if got := tasks[0].Date.Format("2006-01-02"); got != "2025-03-01" {
		t.Errorf("filename fallback date = %s, want 2025-03-01", got)
	}
}

func TestScanFrontmatterFallback(t *testing.T) {
	s := setupTestScanner(t, &config.Settings{}, map[string]string{
		"weekly.md": "---\ndate: \"2025-05-04\"\n---\n- [ ] review 📅\n",
	})

	tasks, err := s.Tasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d: %v", len(tasks), tasks)
	}
	if got := tasks[0].Date.Format("2006-01-02"); got != "2025-05-04" {
		t.Errorf("frontmatter fallback date = %s, want 2025-05-04", got)
	}
}

func TestScanDefaultsToToday(t *testing.T) {
	s := setupTestScanner(t, &config.Settings{}, map[string]string{
		"ideas.md": "- [ ] someday 📅\n",
	})

	tasks, err := s.Tasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	today := time.Now()
	if tasks[0].Date.Year() != today.Year() || tasks[0].Date.YearDay() != today.YearDay() {
		t.Errorf("dateless task in undated note should fall back to today, got %v", tasks[0].Date)
	}
}

func TestScanLineIndexesAreZeroBased(t *testing.T) {
	s := setupTestScanner(t, &config.Settings{}, map[string]string{
		"a.md": "title\n\n- [ ] third line 📅 2025-03-14\n",
	})

	tasks, err := s.Tasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Line != 2 {
		t.Errorf("expected line 2, got %v", tasks)
	}
}
