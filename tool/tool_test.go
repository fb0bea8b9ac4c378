package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/logging"
)

func newToolContext() *core.ToolContext {
	return core.NewToolContext(context.Background(), "thread_1", "run_1", "asst_1", "call_1", logging.NoOpLogger{})
}

func TestFunctionTool(t *testing.T) {
	sumTool := NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)

	t.Run("metadata", func(t *testing.T) {
		assert.Equal(t, "calculate_sum", sumTool.Name())
		assert.Equal(t, "Calculate the sum of two numbers", sumTool.Description())
		assert.NotNil(t, sumTool.Parameters())
	})

	t.Run("successful call", func(t *testing.T) {
		result, err := sumTool.Call(newToolContext(), map[string]any{"a": 2.0, "b": 3.0})
		require.NoError(t, err)
		assert.Equal(t, 5.0, result)
	})

	t.Run("missing required parameter", func(t *testing.T) {
		_, err := sumTool.Call(newToolContext(), map[string]any{"a": 2.0})
		require.Error(t, err)

		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
		assert.Equal(t, "calculate_sum", toolErr.Tool)
	})

	t.Run("execution error is wrapped", func(t *testing.T) {
		failing := NewFunctionTool("fail", "always fails", map[string]any{"type": "object"},
			func(_ *core.ToolContext, _ map[string]any) (any, error) {
				return nil, fmt.Errorf("database unreachable")
			},
		)

		_, err := failing.Call(newToolContext(), map[string]any{})
		require.Error(t, err)

		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
		assert.Contains(t, toolErr.Message, "database unreachable")
	})

	t.Run("tool error passes through", func(t *testing.T) {
		custom := NewFunctionTool("custom", "returns a custom code", map[string]any{"type": "object"},
			func(_ *core.ToolContext, _ map[string]any) (any, error) {
				return nil, NewToolError("custom", "not allowed", "PERMISSION_DENIED")
			},
		)

		_, err := custom.Call(newToolContext(), map[string]any{})
		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, "PERMISSION_DENIED", toolErr.Code)
	})

	t.Run("cancel sentinel passes through", func(t *testing.T) {
		cancelling := NewFunctionTool("stop", "cancels the run", map[string]any{"type": "object"},
			func(_ *core.ToolContext, _ map[string]any) (any, error) {
				return nil, CancelRun(map[string]string{"reason": "user asked"})
			},
		)

		_, err := cancelling.Call(newToolContext(), map[string]any{})
		require.Error(t, err)
		assert.True(t, IsCancelRun(err))

		var cre *CancelRunError
		require.ErrorAs(t, err, &cre)
		assert.Equal(t, map[string]string{"reason": "user asked"}, cre.Data)
	})
}

func TestFunctionToolFromStruct(t *testing.T) {
	type SumArgs struct {
		A float64 `json:"a" description:"First addend"`
		B float64 `json:"b" description:"Second addend"`
	}

	sumTool := NewFunctionToolFromStruct("calculate_sum", "Calculate the sum of two numbers", SumArgs{},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)

	params := sumTool.Parameters()
	assert.Equal(t, "object", params["type"])

	props, ok := params["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")

	result, err := sumTool.Call(newToolContext(), map[string]any{"a": 1.0, "b": 2.0})
	require.NoError(t, err)
	assert.Equal(t, 3.0, result)
}

func TestDefinitions(t *testing.T) {
	echo := NewFunctionTool("echo", "Echoes the input", map[string]any{"type": "object"},
		func(_ *core.ToolContext, args map[string]any) (any, error) { return args, nil },
	)
	noop := NewFunctionTool("noop", "Does nothing", map[string]any{"type": "object"},
		func(_ *core.ToolContext, _ map[string]any) (any, error) { return nil, nil },
	)

	defs := Definitions([]Tool{echo, noop})
	require.Len(t, defs, 2)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "echo", defs[0].Function.Name)
	assert.Equal(t, "noop", defs[1].Function.Name)
}

func TestToolErrorFormatting(t *testing.T) {
	withCode := NewToolError("search", "index offline", "UNAVAILABLE")
	assert.Equal(t, "tool error [UNAVAILABLE] in search: index offline", withCode.Error())

	withoutCode := &ToolError{Tool: "search", Message: "index offline"}
	assert.Equal(t, "tool error in search: index offline", withoutCode.Error())
}

func TestIsCancelRun(t *testing.T) {
	assert.True(t, IsCancelRun(CancelRun(nil)))
	assert.True(t, IsCancelRun(fmt.Errorf("wrapped: %w", CancelRun("data"))))
	assert.False(t, IsCancelRun(errors.New("ordinary")))
	assert.False(t, IsCancelRun(nil))
}
