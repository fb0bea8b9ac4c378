package core

// RunStatus is the server-owned lifecycle state of a run. The set of values
// and their transitions are defined by the remote service; clients only
// observe them.
type RunStatus string

const (
	// RunStatusQueued indicates the run is waiting to be picked up.
	RunStatusQueued RunStatus = "queued"
	// RunStatusInProgress indicates the run is executing server-side.
	RunStatusInProgress RunStatus = "in_progress"
	// RunStatusRequiresAction indicates the server is waiting for the client
	// to execute local tool functions and submit their outputs.
	RunStatusRequiresAction RunStatus = "requires_action"
	// RunStatusCancelling indicates a cancel was requested but not yet final.
	RunStatusCancelling RunStatus = "cancelling"
	// RunStatusCancelled is terminal: the run was cancelled.
	RunStatusCancelled RunStatus = "cancelled"
	// RunStatusFailed is terminal: the run failed (see Run.LastError).
	RunStatusFailed RunStatus = "failed"
	// RunStatusCompleted is terminal: the run finished successfully.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusIncomplete is terminal: the run ended before completing.
	RunStatusIncomplete RunStatus = "incomplete"
	// RunStatusExpired is terminal: the run or its required action expired.
	RunStatusExpired RunStatus = "expired"
)

// Terminal reports whether the status is a final state from which the server
// will make no further transitions.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusCancelled, RunStatusFailed, RunStatusIncomplete, RunStatusExpired:
		return true
	default:
		return false
	}
}

// RequiredActionSubmitToolOutputs is the only required action type the
// service currently emits.
const RequiredActionSubmitToolOutputs = "submit_tool_outputs"

// Run is the vendor run object as returned by the runs endpoints and carried
// inside run stream events.
type Run struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	CreatedAt      int64             `json:"created_at"`
	ThreadID       string            `json:"thread_id"`
	AssistantID    string            `json:"assistant_id"`
	Status         RunStatus         `json:"status"`
	RequiredAction *RequiredAction   `json:"required_action,omitempty"`
	LastError      *LastError        `json:"last_error,omitempty"`
	Model          string            `json:"model,omitempty"`
	Instructions   string            `json:"instructions,omitempty"`
	Tools          []ToolDefinition  `json:"tools,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Usage          *Usage            `json:"usage,omitempty"`
	ExpiresAt      int64             `json:"expires_at,omitempty"`
	StartedAt      int64             `json:"started_at,omitempty"`
	CancelledAt    int64             `json:"cancelled_at,omitempty"`
	FailedAt       int64             `json:"failed_at,omitempty"`
	CompletedAt    int64             `json:"completed_at,omitempty"`
}

// RequiresToolOutputs reports whether the run is paused waiting for locally
// executed tool outputs.
func (r Run) RequiresToolOutputs() bool {
	return r.Status == RunStatusRequiresAction &&
		r.RequiredAction != nil &&
		r.RequiredAction.Type == RequiredActionSubmitToolOutputs &&
		r.RequiredAction.SubmitToolOutputs != nil
}

// ToolCalls returns the function tool calls the server asked the client to
// execute, preserving server order. Empty unless RequiresToolOutputs.
func (r Run) ToolCalls() []ToolCall {
	if !r.RequiresToolOutputs() {
		return nil
	}
	var calls []ToolCall
	for _, tc := range r.RequiredAction.SubmitToolOutputs.ToolCalls {
		if tc.Type == "function" {
			calls = append(calls, tc)
		}
	}
	return calls
}

// RequiredAction describes what the server needs from the client before the
// run can proceed.
type RequiredAction struct {
	Type              string             `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputs lists the pending tool calls of a requires_action run.
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is a single server-requested invocation of a local function.
// Index is only populated on step delta fragments.
type ToolCall struct {
	Index    int          `json:"index,omitempty"`
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its serialized JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Output    string `json:"output,omitempty"`
}

// ToolOutput is the client-produced result for one tool call, resubmitted to
// the server to resume a paused run.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// LastError is the server-reported failure detail of a failed run or step.
type LastError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Usage reports server-side token accounting for a run or step.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ToolDefinition declares one tool in an assistant or run configuration.
// Only function tools carry a definition body.
type ToolDefinition struct {
	Type     string              `json:"type"`
	Function *FunctionDefinition `json:"function,omitempty"`
}

// FunctionDefinition is the schema the model sees for a function tool.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}
