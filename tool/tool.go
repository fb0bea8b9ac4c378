// Package tool implements the local function-calling subsystem: the tools an
// assistant run executes client-side when the server reports a requires_action
// state. Tools expose schema-validated arguments, consistent error handling
// and a conversion to the vendor tool definition format.
package tool

import (
	"fmt"

	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/internal/util"
)

// Tool defines a local function the server-hosted assistant can call.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be safe for concurrent use; a run may execute calls in parallel
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is sent to the model to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool. Arguments are parsed from the server-supplied
	// JSON and validated against the tool's schema before invocation.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// Definition converts a Tool into the vendor wire representation used in
// assistant and run configuration.
func Definition(t Tool) core.ToolDefinition {
	return core.ToolDefinition{
		Type: "function",
		Function: &core.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// Definitions converts a tool set preserving order.
func Definitions(tools []Tool) []core.ToolDefinition {
	defs := make([]core.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, Definition(t))
	}
	return defs
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
