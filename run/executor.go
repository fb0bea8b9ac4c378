package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/tool"
)

// executeToolCalls runs the tool calls the server is waiting on and returns
// one output per call, in call order. Tool failures never fail the batch:
// they become error-text outputs so the model can react. A CancelRunError
// from any tool aborts the batch instead and is returned to the loop.
func (r *Run) executeToolCalls(ctx context.Context) ([]core.ToolOutput, error) {
	cur := r.Current()
	if cur == nil {
		return nil, fmt.Errorf("no run snapshot while action is required")
	}
	calls := cur.ToolCalls()
	if len(calls) == 0 {
		return nil, fmt.Errorf("run %s requires action but has no tool calls", cur.ID)
	}

	registry := map[string]tool.Tool{}
	for _, t := range r.tools() {
		registry[t.Name()] = t
	}

	parallel := r.opts.MaxParallelTools
	if parallel < 1 {
		parallel = 1
	}

	outputs := make([]core.ToolOutput, len(calls))
	cancels := make([]*tool.CancelRunError, len(calls))

	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call core.ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out, cancelErr := r.executeToolCall(ctx, registry, call)
			outputs[i] = core.ToolOutput{ToolCallID: call.ID, Output: out}
			cancels[i] = cancelErr
		}(i, call)
	}
	wg.Wait()

	for _, cre := range cancels {
		if cre != nil {
			return nil, cre
		}
	}

	return outputs, nil
}

// executeToolCall resolves and invokes one tool call. It returns either the
// encoded output or the cancellation sentinel; ordinary errors are folded
// into the output text so the server-side model sees them.
func (r *Run) executeToolCall(ctx context.Context, registry map[string]tool.Tool, call core.ToolCall) (string, *tool.CancelRunError) {
	name := call.Function.Name

	t, ok := registry[name]
	if !ok {
		r.logger.Error("tool.call.unknown", "tool", name, "tool_call_id", call.ID)
		return fmt.Sprintf("Error calling function %s: tool not registered", name), nil
	}

	args := map[string]any{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			r.logger.Error("tool.call.bad_arguments", "tool", name, "tool_call_id", call.ID, "error", err.Error())
			return fmt.Sprintf("Error calling function %s: invalid arguments: %v", name, err), nil
		}
	}

	toolCtx := core.NewToolContext(ctx, r.threadID, r.runID(), r.assistant.ID(), call.ID, r.logger)

	start := time.Now()
	result, err := safeCall(t, toolCtx, args)
	r.logger.LogToolCall(name, call.ID, time.Since(start), err)

	if err != nil {
		var cre *tool.CancelRunError
		if errors.As(err, &cre) {
			return "", cre
		}
		return fmt.Sprintf("Error calling function %s: %v", name, err), nil
	}

	return encodeToolResult(result), nil
}

// safeCall invokes the tool converting panics into errors so one misbehaving
// tool cannot take down the whole run loop.
func safeCall(t tool.Tool, toolCtx *core.ToolContext, args map[string]any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", t.Name(), rec)
		}
	}()
	return t.Call(toolCtx, args)
}

// encodeToolResult serializes a tool result for submission. Strings pass
// through; everything else is JSON-encoded.
func encodeToolResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
