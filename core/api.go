package core

import "context"

// API is the client contract the orchestration loop consumes. It covers the
// vendor surface the loop and its collaborators need: assistant and thread
// lifecycle, message access, and the streamed run endpoints. The client
// package provides the production implementation; tests script a fake.
type API interface {
	// CreateAssistant registers a new assistant configuration server-side.
	CreateAssistant(ctx context.Context, req AssistantRequest) (Assistant, error)

	// RetrieveAssistant fetches an existing assistant by ID.
	RetrieveAssistant(ctx context.Context, assistantID string) (Assistant, error)

	// DeleteAssistant removes an assistant.
	DeleteAssistant(ctx context.Context, assistantID string) error

	// CreateThread creates a conversation thread, optionally seeded with messages.
	CreateThread(ctx context.Context, req ThreadRequest) (Thread, error)

	// DeleteThread removes a thread and its server-side message state.
	DeleteThread(ctx context.Context, threadID string) error

	// CreateMessage appends a message to a thread.
	CreateMessage(ctx context.Context, threadID string, req MessageRequest) (Message, error)

	// ListMessages returns one page of thread messages.
	ListMessages(ctx context.Context, threadID string, opts ListOptions) (MessageList, error)

	// CreateRunStream starts a streamed run on a thread. The returned stream
	// must be drained and closed by the caller.
	CreateRunStream(ctx context.Context, threadID string, req RunRequest) (Stream, error)

	// SubmitToolOutputsStream resubmits locally produced tool outputs to a
	// requires_action run, resuming it as a stream.
	SubmitToolOutputsStream(ctx context.Context, threadID, runID string, req SubmitToolOutputsRequest) (Stream, error)

	// RetrieveRun fetches the current server-side state of a run.
	RetrieveRun(ctx context.Context, threadID, runID string) (Run, error)

	// CancelRun requests cancellation of an in-flight run. Cancellation is
	// cooperative server-side; the returned run may still be cancelling.
	CancelRun(ctx context.Context, threadID, runID string) (Run, error)

	// ListRunSteps returns one page of the steps of a run.
	ListRunSteps(ctx context.Context, threadID, runID string, opts ListOptions) (RunStepList, error)
}

// Assistant is the vendor assistant configuration object.
type Assistant struct {
	ID           string            `json:"id"`
	Object       string            `json:"object"`
	CreatedAt    int64             `json:"created_at"`
	Name         string            `json:"name,omitempty"`
	Description  string            `json:"description,omitempty"`
	Model        string            `json:"model"`
	Instructions string            `json:"instructions,omitempty"`
	Tools        []ToolDefinition  `json:"tools,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Temperature  *float64          `json:"temperature,omitempty"`
}

// Thread is the vendor thread object.
type Thread struct {
	ID        string            `json:"id"`
	Object    string            `json:"object"`
	CreatedAt int64             `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AssistantRequest is the body of assistant creation.
type AssistantRequest struct {
	Model        string            `json:"model"`
	Name         string            `json:"name,omitempty"`
	Description  string            `json:"description,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Tools        []ToolDefinition  `json:"tools,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Temperature  *float64          `json:"temperature,omitempty"`
}

// ThreadRequest is the body of thread creation.
type ThreadRequest struct {
	Messages []MessageRequest  `json:"messages,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MessageRequest is the body of message creation.
type MessageRequest struct {
	Role     string            `json:"role"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RunRequest is the body of streamed run creation. Instructions and Tools are
// pointers/nil-able so the server-side assistant defaults apply when the run
// does not override them.
type RunRequest struct {
	AssistantID  string            `json:"assistant_id"`
	Instructions *string           `json:"instructions,omitempty"`
	Tools        []ToolDefinition  `json:"tools,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Stream       bool              `json:"stream"`
}

// SubmitToolOutputsRequest is the body of the streamed tool output submission.
type SubmitToolOutputsRequest struct {
	ToolOutputs []ToolOutput `json:"tool_outputs"`
	Stream      bool         `json:"stream"`
}

// ListOptions control pagination of list endpoints. Zero values mean server
// defaults.
type ListOptions struct {
	Limit  int
	Order  string // "asc" or "desc"
	After  string
	Before string
}

// MessageList is one page of thread messages.
type MessageList struct {
	Object  string    `json:"object"`
	Data    []Message `json:"data"`
	FirstID string    `json:"first_id"`
	LastID  string    `json:"last_id"`
	HasMore bool      `json:"has_more"`
}

// RunStepList is one page of run steps.
type RunStepList struct {
	Object  string    `json:"object"`
	Data    []RunStep `json:"data"`
	FirstID string    `json:"first_id"`
	LastID  string    `json:"last_id"`
	HasMore bool      `json:"has_more"`
}
