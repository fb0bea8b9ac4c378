package core

import (
	"context"

	"github.com/hupe1980/threadrun/logging"
)

// ToolContext is handed to a local tool for one server-requested call. It
// correlates the call with the run that requested it and exposes the run's
// logger. A ToolContext is immutable after construction and safe to share.
type ToolContext struct {
	ctx         context.Context
	threadID    string
	runID       string
	assistantID string
	toolCallID  string
	logger      logging.Logger
}

// NewToolContext binds a tool call to its originating run.
func NewToolContext(ctx context.Context, threadID, runID, assistantID, toolCallID string, logger logging.Logger) *ToolContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolContext{
		ctx:         ctx,
		threadID:    threadID,
		runID:       runID,
		assistantID: assistantID,
		toolCallID:  toolCallID,
		logger:      logger,
	}
}

// Context returns the run's context; tools must respect its cancellation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// ThreadID returns the thread the run executes against.
func (tc *ToolContext) ThreadID() string { return tc.threadID }

// RunID returns the run that requested the call.
func (tc *ToolContext) RunID() string { return tc.runID }

// AssistantID returns the assistant bound to the run.
func (tc *ToolContext) AssistantID() string { return tc.assistantID }

// ToolCallID returns the server-assigned identifier of this call. Outputs are
// keyed by it on submission.
func (tc *ToolContext) ToolCallID() string { return tc.toolCallID }

// Logger returns the run logger.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }
