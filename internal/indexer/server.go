package indexer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chris-regnier/calctl/internal/config"
	"github.com/chris-regnier/calctl/internal/date"
	"github.com/chris-regnier/calctl/internal/scan"
	"github.com/chris-regnier/calctl/internal/task"
	"github.com/chris-regnier/calctl/internal/vault"
)

// Service is the bundled index service: a libSQL-backed task index served
// over MCP. It exposes the same duck-typed tool surface the browser probes
// for, so it doubles as a reference for third-party services.
type Service struct {
	vault   *vault.Vault
	cfg     *config.Settings
	scanner *scan.Scanner
	store   *Store
	logger  *slog.Logger
}

// NewService wires a service over an open vault and store.
func NewService(v *vault.Vault, cfg *config.Settings, store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		vault:   v,
		cfg:     cfg,
		scanner: scan.New(v, cfg, logger),
		store:   store,
		logger:  logger,
	}
}

// Reindex rescans the whole vault and replaces the index.
func (s *Service) Reindex(ctx context.Context) error {
	notes, err := s.vault.List()
	if err != nil {
		return err
	}

	var rows []Row
	for _, rel := range notes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !s.cfg.InScanScope(rel) {
			continue
		}
		content, err := s.vault.Read(rel)
		if err != nil {
			s.logger.Warn("indexer: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		rows = append(rows, s.noteRows(rel, content)...)
	}

	if err := s.store.ReplaceAll(rows); err != nil {
		return err
	}
	s.logger.Info("indexer: reindexed", slog.Int("tasks", len(rows)))
	return nil
}

// noteRows scans one note with no today fallback, so undated tasks are
// stored undated instead of pinned to the day the index ran.
func (s *Service) noteRows(rel, content string) []Row {
	var rows []Row
	for _, t := range s.scanner.ScanNote(rel, content, time.Time{}) {
		r := Row{Path: t.Path, Line: t.Line, Text: t.FirstLine(), Completed: t.Completed}
		if !t.Date.IsZero() {
			r.Due = t.Date.Format("2006-01-02")
		}
		rows = append(rows, r)
	}
	return rows
}

func (s *Service) reindexNote(rel string) {
	content, err := s.vault.Read(rel)
	if err != nil {
		s.logger.Warn("indexer: reread failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := s.store.ReplaceNote(rel, s.noteRows(rel, content)); err != nil {
		s.logger.Warn("indexer: reindex note failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

// Watch rebuilds the index whenever the vault changes, until ctx ends.
func (s *Service) Watch(ctx context.Context) error {
	events, err := s.vault.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.Reindex(ctx); err != nil {
				s.logger.Warn("indexer: reindex failed", slog.String("error", err.Error()))
			}
		}
	}
}

// MCPServer builds the MCP server with the task tools registered.
func (s *Service) MCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "calctl-index",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List every calendar-marked checklist task in the vault",
	}, s.listTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle_line",
		Description: "Toggle the completion marker of a checklist line, returning the replacement line for the caller to write back",
	}, s.toggleLine)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle_task",
		Description: "Flip the completion state of a checklist line",
	}, s.toggleTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "draft_task",
		Description: "Compose a checklist line from a description and optional due date",
	}, s.draftTask)

	return server
}

// Serve runs the MCP server on the given transport until it closes.
func (s *Service) Serve(ctx context.Context, transport mcp.Transport) error {
	return s.MCPServer().Run(ctx, transport)
}

func (s *Service) listTasks(ctx context.Context, req *mcp.CallToolRequest, input ListTasksInput) (*mcp.CallToolResult, ListTasksOutput, error) {
	rows, err := s.store.All()
	if err != nil {
		return nil, ListTasksOutput{}, err
	}

	results := make([]TaskResult, len(rows))
	for i, r := range rows {
		results[i] = TaskResult{
			Path:      r.Path,
			Line:      r.Line,
			Text:      r.Text,
			Due:       r.Due,
			Completed: r.Completed,
		}
	}
	return nil, ListTasksOutput{Tasks: results}, nil
}

// toggleLine flips the marker of the line the caller presents and returns
// the replacement without writing it; the caller owns the write, and the
// index catches up through the vault watch once it lands.
func (s *Service) toggleLine(ctx context.Context, req *mcp.CallToolRequest, input ToggleLineInput) (*mcp.CallToolResult, ToggleLineOutput, error) {
	content, err := s.vault.Read(input.Path)
	if err != nil {
		return nil, ToggleLineOutput{}, err
	}

	lines := task.Lines(content)
	if input.Line < 0 || input.Line >= len(lines) {
		return nil, ToggleLineOutput{}, task.ErrLineOutOfRange
	}
	if input.Text != "" && input.Text != lines[input.Line] {
		return nil, ToggleLineOutput{}, fmt.Errorf("line %d of %s changed since it was read", input.Line, input.Path)
	}

	flipped, err := task.Flip(lines[input.Line])
	if err != nil {
		return nil, ToggleLineOutput{}, err
	}
	return nil, ToggleLineOutput{Line: flipped}, nil
}

func (s *Service) toggleTask(ctx context.Context, req *mcp.CallToolRequest, input ToggleTaskInput) (*mcp.CallToolResult, ToggleTaskOutput, error) {
	content, err := s.vault.Read(input.Path)
	if err != nil {
		return nil, ToggleTaskOutput{}, err
	}

	lines := task.Lines(content)
	if input.Line < 0 || input.Line >= len(lines) {
		return nil, ToggleTaskOutput{}, task.ErrLineOutOfRange
	}
	flipped, err := task.Flip(lines[input.Line])
	if err != nil {
		return nil, ToggleTaskOutput{}, err
	}
	lines[input.Line] = flipped

	if err := s.vault.Write(input.Path, strings.Join(lines, "\n")); err != nil {
		return nil, ToggleTaskOutput{}, err
	}
	s.reindexNote(input.Path)

	m, _ := task.MatchLine(flipped)
	return nil, ToggleTaskOutput{Completed: m.Completed()}, nil
}

func (s *Service) draftTask(ctx context.Context, req *mcp.CallToolRequest, input DraftTaskInput) (*mcp.CallToolResult, DraftTaskOutput, error) {
	var due time.Time
	if input.Due != "" {
		d, err := date.ParseISO(input.Due)
		if err != nil {
			return nil, DraftTaskOutput{}, err
		}
		due = d
	}
	return nil, DraftTaskOutput{Line: task.Compose(input.Description, due)}, nil
}
