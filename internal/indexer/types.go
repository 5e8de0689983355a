package indexer

// ListTasksInput is the input schema for the list_tasks MCP tool.
type ListTasksInput struct{}

// ListTasksOutput is the output schema for the list_tasks MCP tool.
type ListTasksOutput struct {
	Tasks []TaskResult `json:"tasks"`
}

// TaskResult is one task in list_tasks output.
type TaskResult struct {
	Path      string `json:"path" jsonschema-description:"Vault-relative note path"`
	Line      int    `json:"line" jsonschema-description:"Zero-based line number of the checklist line"`
	Text      string `json:"text" jsonschema-description:"Checklist text without the checkbox"`
	Due       string `json:"due,omitempty" jsonschema-description:"ISO due date, omitted for undated tasks"`
	Completed bool   `json:"completed" jsonschema-description:"Whether the checkbox is checked"`
}

// ToggleLineInput is the input schema for the toggle_line MCP tool.
type ToggleLineInput struct {
	Path string `json:"path" jsonschema-description:"Vault-relative note path"`
	Line int    `json:"line" jsonschema-description:"Zero-based line number of the checklist line"`
	Text string `json:"text,omitempty" jsonschema-description:"The line as the caller read it, for staleness detection"`
}

// ToggleLineOutput is the output schema for the toggle_line MCP tool.
type ToggleLineOutput struct {
	Line string `json:"line" jsonschema-description:"Replacement line for the caller to write back"`
}

// ToggleTaskInput is the input schema for the toggle_task MCP tool.
type ToggleTaskInput struct {
	Path string `json:"path" jsonschema-description:"Vault-relative note path"`
	Line int    `json:"line" jsonschema-description:"Zero-based line number of the checklist line"`
}

// ToggleTaskOutput is the output schema for the toggle_task MCP tool.
type ToggleTaskOutput struct {
	Completed bool `json:"completed" jsonschema-description:"Completion state after the flip"`
}

// DraftTaskInput is the input schema for the draft_task MCP tool.
type DraftTaskInput struct {
	Description string `json:"description" jsonschema-description:"What the task is about"`
	Due         string `json:"due,omitempty" jsonschema-description:"ISO due date"`
}

// DraftTaskOutput is the output schema for the draft_task MCP tool.
type DraftTaskOutput struct {
	Line string `json:"line"`
}
