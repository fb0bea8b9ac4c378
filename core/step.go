package core

// RunStep is the vendor run step object: one unit of server-side work inside
// a run, either a message creation or a batch of tool calls.
type RunStep struct {
	ID          string       `json:"id"`
	Object      string       `json:"object"`
	CreatedAt   int64        `json:"created_at"`
	RunID       string       `json:"run_id"`
	ThreadID    string       `json:"thread_id"`
	AssistantID string       `json:"assistant_id,omitempty"`
	Type        string       `json:"type"`
	Status      string       `json:"status"`
	StepDetails *StepDetails `json:"step_details,omitempty"`
	LastError   *LastError   `json:"last_error,omitempty"`
	Usage       *Usage       `json:"usage,omitempty"`
	CancelledAt int64        `json:"cancelled_at,omitempty"`
	FailedAt    int64        `json:"failed_at,omitempty"`
	CompletedAt int64        `json:"completed_at,omitempty"`
	ExpiredAt   int64        `json:"expired_at,omitempty"`
}

// Done reports whether the step reached a final state.
func (s RunStep) Done() bool {
	switch s.Status {
	case "completed", "failed", "cancelled", "expired":
		return true
	default:
		return false
	}
}

// StepDetails is the typed payload of a run step.
type StepDetails struct {
	Type            string           `json:"type"`
	MessageCreation *MessageCreation `json:"message_creation,omitempty"`
	ToolCalls       []ToolCall       `json:"tool_calls,omitempty"`
}

// MessageCreation links a message_creation step to the message it produced.
type MessageCreation struct {
	MessageID string `json:"message_id"`
}

// RunStepDelta is the streamed incremental update to a run step, typically
// carrying tool call argument fragments.
type RunStepDelta struct {
	ID     string           `json:"id"`
	Object string           `json:"object"`
	Delta  RunStepDeltaBody `json:"delta"`
}

// RunStepDeltaBody carries the changed fields of a step delta.
type RunStepDeltaBody struct {
	StepDetails *StepDetails `json:"step_details,omitempty"`
}
