package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/date"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	// ErrUnavailable marks any failure to reach or use the index service.
	ErrUnavailable = errors.New("index service unavailable")
	// ErrNoCapability means the live tool list has no tool for the request.
	ErrNoCapability = errors.New("index service does not offer this tool")
)

// Candidate tool names, probed in order against the live tool list. The
// service is duck typed: the first name present wins.
var (
	listingTools = []string{"list_tasks", "tasks", "get_tasks"}
	rewriteTools = []string{"toggle_line", "rewrite_line"}
	toggleTools  = []string{"toggle_task", "set_task_status"}
	promptTools  = []string{"draft_task", "create_task_line", "new_task"}
)

// Client talks to the optional index service over MCP. The session is kept
// open between calls, but capabilities are re-read from the live tool list
// on every operation so a restarted service with a different tool set
// behaves correctly.
type Client struct {
	command   []string
	transport mcp.Transport
	logger    *slog.Logger

	mu      sync.Mutex
	session *mcp.ClientSession
}

// New returns a client for the configured service command, or nil when no
// command is configured. Callers treat a nil client as "no service".
func New(cfg config.IndexConfig, logger *slog.Logger) *Client {
	if len(cfg.Command) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{command: cfg.Command, logger: logger}
}

// NewWithTransport returns a client that connects over the given transport
// instead of spawning a command.
func NewWithTransport(t mcp.Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{transport: t, logger: logger}
}

// Close shuts down the session and the spawned service, if any.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func (c *Client) ensure(ctx context.Context) (*mcp.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session, nil
	}

	transport := c.transport
	if transport == nil {
		transport = &mcp.CommandTransport{Command: exec.Command(c.command[0], c.command[1:]...)}
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "calctl",
		Version: "1.0.0",
	}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrUnavailable, err)
	}

	c.logger.Debug("index: connected", slog.String("command", strings.Join(c.command, " ")))
	c.session = session
	return session, nil
}

// drop closes a session after a transport failure so the next call redials.
func (c *Client) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		_ = c.session.Close()
		c.session = nil
	}
}

// resolve re-reads the live tool list and returns the first candidate the
// service offers.
func (c *Client) resolve(ctx context.Context, candidates []string) (string, error) {
	session, err := c.ensure(ctx)
	if err != nil {
		return "", err
	}

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		c.drop()
		return "", fmt.Errorf("%w: list tools: %v", ErrUnavailable, err)
	}

	have := make(map[string]bool, len(result.Tools))
	for _, tool := range result.Tools {
		have[tool.Name] = true
	}
	for _, name := range candidates {
		if have[name] {
			return name, nil
		}
	}
	return "", ErrNoCapability
}

// call invokes a tool and returns its structured content, or its first text
// content when no structured content is present.
func (c *Client) call(ctx context.Context, name string, args any) (any, string, error) {
	session, err := c.ensure(ctx)
	if err != nil {
		return nil, "", err
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		c.drop()
		return nil, "", fmt.Errorf("%w: call %s: %v", ErrUnavailable, name, err)
	}
	if result.IsError {
		return nil, "", fmt.Errorf("%w: %s reported an error", ErrUnavailable, name)
	}

	if result.StructuredContent != nil {
		return result.StructuredContent, "", nil
	}
	if len(result.Content) > 0 {
		contentJSON, err := json.Marshal(result.Content[0])
		if err != nil {
			return nil, "", fmt.Errorf("%w: marshal content: %v", ErrUnavailable, err)
		}
		var textContent struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(contentJSON, &textContent); err != nil {
			return nil, "", fmt.Errorf("%w: unmarshal content: %v", ErrUnavailable, err)
		}
		return nil, textContent.Text, nil
	}
	return nil, "", nil
}

// ListTasks asks the service for its task listing.
func (c *Client) ListTasks(ctx context.Context) ([]RawTask, error) {
	name, err := c.resolve(ctx, listingTools)
	if err != nil {
		return nil, err
	}

	structured, text, err := c.call(ctx, name, map[string]any{})
	if err != nil {
		return nil, err
	}
	v := structured
	if v == nil && text != "" {
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("%w: decode %s output: %v", ErrUnavailable, name, err)
		}
	}
	return decodeTasks(v)
}

// RewriteLine hands the current source line to the service and returns the
// replacement line it produced. The caller writes the replacement back; the
// service never touches the note for this operation.
func (c *Client) RewriteLine(ctx context.Context, path string, line int, text string) (string, error) {
	name, err := c.resolve(ctx, rewriteTools)
	if err != nil {
		return "", err
	}
	structured, textOut, err := c.call(ctx, name, map[string]any{
		"path": path,
		"line": line,
		"text": text,
	})
	if err != nil {
		return "", err
	}

	if m, ok := structured.(map[string]any); ok {
		for _, key := range []string{"line", "text"} {
			if s, ok := m[key].(string); ok && s != "" {
				return strings.TrimRight(s, "\n"), nil
			}
		}
	}
	if textOut != "" {
		return strings.TrimRight(textOut, "\n"), nil
	}
	return "", fmt.Errorf("%w: %s returned no replacement line", ErrUnavailable, name)
}

// ToggleTask asks the service to flip the completion state of a task.
func (c *Client) ToggleTask(ctx context.Context, path string, line int) error {
	name, err := c.resolve(ctx, toggleTools)
	if err != nil {
		return err
	}
	_, _, err = c.call(ctx, name, map[string]any{
		"path": path,
		"line": line,
	})
	return err
}

// CanDraft reports whether the live tool list offers a drafting tool.
func (c *Client) CanDraft(ctx context.Context) bool {
	if c == nil {
		return false
	}
	_, err := c.resolve(ctx, promptTools)
	return err == nil
}

// DraftTask asks the service to compose a checklist line from a description
// and an optional due date.
func (c *Client) DraftTask(ctx context.Context, description string, due time.Time) (string, error) {
	name, err := c.resolve(ctx, promptTools)
	if err != nil {
		return "", err
	}

	args := map[string]any{"description": description}
	if !due.IsZero() {
		args["due"] = due.Format("2006-01-02")
	}
	structured, text, err := c.call(ctx, name, args)
	if err != nil {
		return "", err
	}

	if m, ok := structured.(map[string]any); ok {
		for _, key := range []string{"line", "text", "task"} {
			if s, ok := m[key].(string); ok && s != "" {
				return strings.TrimRight(s, "\n"), nil
			}
		}
	}
	if text != "" {
		return strings.TrimRight(text, "\n"), nil
	}
	return "", fmt.Errorf("%w: %s returned no line", ErrUnavailable, name)
}

// decodeTasks accepts either a bare array or an object wrapping one under a
// well known key.
func decodeTasks(v any) ([]RawTask, error) {
	var items []any
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		items = t
	case map[string]any:
		for _, key := range []string{"tasks", "items", "entries"} {
			if arr, ok := t[key].([]any); ok {
				items = arr
				break
			}
		}
		if items == nil {
			return nil, fmt.Errorf("%w: listing shape not recognized", ErrUnavailable)
		}
	default:
		return nil, fmt.Errorf("%w: listing shape not recognized", ErrUnavailable)
	}

	out := make([]RawTask, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, RawTask(m))
		}
	}
	return out, nil
}

// RawTask is one listing entry as the service reports it. Field names vary
// between services, so every accessor probes the known aliases.
type RawTask map[string]any

func (r RawTask) str(keys ...string) string {
	for _, k := range keys {
		if s, ok := r[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Path returns the note path, however the service names it.
func (r RawTask) Path() string {
	return r.str("path", "file", "filePath", "file_path", "note")
}

// Line returns the zero based line number when present.
func (r RawTask) Line() (int, bool) {
	for _, k := range []string{"line", "lineNumber", "line_number", "position", "row"} {
		switch v := r[k].(type) {
		case float64:
			return int(v), true
		case int:
			return v, true
		}
	}
	return 0, false
}

// Text returns the task text, however the service names it.
func (r RawTask) Text() string {
	return r.str("text", "description", "summary", "title")
}

// Due returns the first date among the due, start, and scheduled fields, in
// that order of trust. Timestamps are truncated to their date part.
func (r RawTask) Due() (time.Time, bool) {
	keys := []string{
		"due", "dueDate", "due_date",
		"start", "startDate", "start_date",
		"scheduled", "scheduledDate", "scheduled_date",
	}
	for _, k := range keys {
		s, ok := r[k].(string)
		if !ok || s == "" {
			continue
		}
		if i := strings.IndexByte(s, 'T'); i > 0 {
			s = s[:i]
		}
		if d, err := date.ParseISO(s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// Completed reports the completion state when the service exposes one.
func (r RawTask) Completed() (bool, bool) {
	for _, k := range []string{"status", "checked", "completed", "done"} {
		switch v := r[k].(type) {
		case bool:
			return v, true
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "x", "done", "complete", "completed":
				return true, true
			case "", "open", "todo", "pending":
				return false, true
			}
		}
	}
	return false, false
}
