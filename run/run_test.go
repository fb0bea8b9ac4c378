package run

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/threadrun/assistant"
	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/handler"
	"github.com/hupe1980/threadrun/internal/testutil"
	"github.com/hupe1980/threadrun/tool"
)

// recordingHandler notes the callbacks of one streaming cycle.
type recordingHandler struct {
	handler.Base
	calls    []string
	messages []core.Message
	deltas   []string
	err      error
}

func (h *recordingHandler) OnRun(run core.Run) {
	h.calls = append(h.calls, "run:"+string(run.Status))
}

func (h *recordingHandler) OnMessageCreated(core.Message) {
	h.calls = append(h.calls, "message_created")
}

func (h *recordingHandler) OnMessageDelta(delta core.MessageDelta, _ core.Message) {
	h.calls = append(h.calls, "message_delta")
	h.deltas = append(h.deltas, delta.Text())
}

func (h *recordingHandler) OnMessageDone(msg core.Message) {
	h.calls = append(h.calls, "message_done")
	h.messages = append(h.messages, msg)
}

func (h *recordingHandler) OnStepCreated(core.RunStep) {
	h.calls = append(h.calls, "step_created")
}

func (h *recordingHandler) OnStepDone(core.RunStep) {
	h.calls = append(h.calls, "step_done")
}

func (h *recordingHandler) OnError(err error) {
	h.calls = append(h.calls, "error")
	h.err = err
}

func (h *recordingHandler) OnDone() {
	h.calls = append(h.calls, "done")
}

// recordingFactory hands out one recordingHandler per streaming cycle.
func recordingFactory() (handler.Factory, *[]*recordingHandler) {
	var handlers []*recordingHandler
	return func() handler.Handler {
		h := &recordingHandler{}
		handlers = append(handlers, h)
		return h
	}, &handlers
}

func strPtr(s string) *string { return &s }

func completedStream(runID, threadID, assistantID string) *testutil.Stream {
	msg := testutil.TextMessage("msg_1", threadID, "assistant", "", 10)
	msg.Status = "in_progress"
	done := testutil.TextMessage("msg_1", threadID, "assistant", "Hello world", 10)

	return testutil.NewStream(
		testutil.RunEvent(testutil.NewRun(runID, threadID, assistantID, core.RunStatusQueued)),
		testutil.StepEvent("thread.run.step.created", core.RunStep{
			ID: "step_1", Object: "thread.run.step", CreatedAt: 1, RunID: runID, ThreadID: threadID,
			Type: "message_creation", Status: "in_progress",
		}),
		testutil.MessageEvent("thread.message.created", msg),
		testutil.MessageDeltaEvent("msg_1", "Hello"),
		testutil.MessageDeltaEvent("msg_1", " world"),
		testutil.MessageEvent("thread.message.completed", done),
		testutil.StepEvent("thread.run.step.completed", core.RunStep{
			ID: "step_1", Object: "thread.run.step", CreatedAt: 1, RunID: runID, ThreadID: threadID,
			Type: "message_creation", Status: "completed",
		}),
		testutil.RunEvent(testutil.NewRun(runID, threadID, assistantID, core.RunStatusCompleted)),
		testutil.DoneEvent(),
	)
}

func TestExecuteHappyPath(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()
	api.RunStreams = []core.Stream{completedStream("run_1", "thread_1", "asst_1")}

	asst := assistant.New("gpt-4o-mini")
	factory, handlers := recordingFactory()

	r := New(api, "thread_1", asst, func(o *Options) {
		o.Handler = factory
	})

	require.NoError(t, r.Execute(ctx))

	cur := r.Current()
	require.NotNil(t, cur)
	assert.Equal(t, core.RunStatusCompleted, cur.Status)

	msgs := r.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello world", msgs[0].Text())

	steps := r.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "completed", steps[0].Status)

	require.Len(t, *handlers, 1)
	assert.Equal(t, []string{
		"run:queued",
		"step_created",
		"message_created",
		"message_delta",
		"message_delta",
		"message_done",
		"step_done",
		"run:completed",
		"done",
	}, (*handlers)[0].calls)
	assert.Equal(t, []string{"Hello", " world"}, (*handlers)[0].deltas)
}

func TestExecuteIsSingleUse(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()
	api.RunStreams = []core.Stream{completedStream("run_1", "thread_1", "asst_1")}

	r := New(api, "thread_1", assistant.New("gpt-4o-mini"))
	require.NoError(t, r.Execute(ctx))
	assert.ErrorIs(t, r.Execute(ctx), ErrAlreadyStarted)
}

func TestExecuteToolLoop(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()

	requires := testutil.RequireToolCalls(
		testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusRequiresAction),
		testutil.FunctionCall("call_1", "get_weather", `{"location":"Hamburg"}`),
		testutil.FunctionCall("call_2", "echo", `{"text":"plain"}`),
	)
	api.RunStreams = []core.Stream{testutil.NewStream(
		testutil.RunEvent(testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusQueued)),
		testutil.RunEvent(requires),
		testutil.DoneEvent(),
	)}
	api.SubmitStreams = []core.Stream{testutil.NewStream(
		testutil.RunEvent(testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusCompleted)),
		testutil.DoneEvent(),
	)}

	weather := tool.NewFunctionTool("get_weather", "weather lookup", map[string]any{"type": "object"},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return map[string]any{"location": args["location"], "temperature": 21}, nil
		},
	)
	echo := tool.NewFunctionTool("echo", "echoes text", map[string]any{"type": "object"},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			assert.Equal(t, "thread_1", toolCtx.ThreadID())
			assert.Equal(t, "run_1", toolCtx.RunID())
			assert.Equal(t, "call_2", toolCtx.ToolCallID())
			return args["text"].(string), nil
		},
	)

	asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
		o.Tools = []tool.Tool{weather, echo}
	})

	factory, handlers := recordingFactory()
	r := New(api, "thread_1", asst, func(o *Options) {
		o.Handler = factory
	})

	require.NoError(t, r.Execute(ctx))

	cur := r.Current()
	require.NotNil(t, cur)
	assert.Equal(t, core.RunStatusCompleted, cur.Status)

	require.Len(t, api.SubmittedOutputs, 1)
	outputs := api.SubmittedOutputs[0]
	require.Len(t, outputs, 2)
	assert.Equal(t, "call_1", outputs[0].ToolCallID)
	assert.JSONEq(t, `{"location":"Hamburg","temperature":21}`, outputs[0].Output)
	assert.Equal(t, "call_2", outputs[1].ToolCallID)
	assert.Equal(t, "plain", outputs[1].Output)

	// One handler per streaming cycle.
	assert.Len(t, *handlers, 2)
}

func TestExecuteToolErrorsBecomeOutputs(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()

	requires := testutil.RequireToolCalls(
		testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusRequiresAction),
		testutil.FunctionCall("call_1", "broken", `{}`),
		testutil.FunctionCall("call_2", "missing_tool", `{}`),
		testutil.FunctionCall("call_3", "panicky", `{}`),
	)
	api.RunStreams = []core.Stream{testutil.NewStream(testutil.RunEvent(requires), testutil.DoneEvent())}
	api.SubmitStreams = []core.Stream{testutil.NewStream(
		testutil.RunEvent(testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusCompleted)),
		testutil.DoneEvent(),
	)}

	broken := tool.NewFunctionTool("broken", "always fails", map[string]any{"type": "object"},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			return nil, assert.AnError
		},
	)
	panicky := tool.NewFunctionTool("panicky", "panics", map[string]any{"type": "object"},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			panic("unexpected state")
		},
	)

	asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
		o.Tools = []tool.Tool{broken, panicky}
	})

	r := New(api, "thread_1", asst)
	require.NoError(t, r.Execute(ctx))

	require.Len(t, api.SubmittedOutputs, 1)
	outputs := api.SubmittedOutputs[0]
	require.Len(t, outputs, 3)

	assert.Contains(t, outputs[0].Output, "Error calling function broken:")
	assert.Contains(t, outputs[1].Output, "Error calling function missing_tool: tool not registered")
	assert.Contains(t, outputs[2].Output, "Error calling function panicky:")
	assert.Contains(t, outputs[2].Output, "unexpected state")
}

func TestExecuteCancelledByTool(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()

	requires := testutil.RequireToolCalls(
		testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusRequiresAction),
		testutil.FunctionCall("call_1", "finish", `{}`),
	)
	api.RunStreams = []core.Stream{testutil.NewStream(testutil.RunEvent(requires), testutil.DoneEvent())}

	finish := tool.NewFunctionTool("finish", "ends the run", map[string]any{"type": "object"},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			return nil, tool.CancelRun(map[string]string{"answer": "42"})
		},
	)

	asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
		o.Tools = []tool.Tool{finish}
	})

	r := New(api, "thread_1", asst)
	require.NoError(t, r.Execute(ctx))

	assert.Equal(t, []string{"run_1"}, api.CancelledRuns)
	assert.Empty(t, api.SubmittedOutputs, "no outputs are submitted after a cancel")
	assert.Equal(t, map[string]string{"answer": "42"}, r.Data())

	cur := r.Current()
	require.NotNil(t, cur)
	assert.Equal(t, core.RunStatusCancelled, cur.Status)
}

func TestExecuteMaxTurnsExceeded(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()

	requires := testutil.RequireToolCalls(
		testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusRequiresAction),
		testutil.FunctionCall("call_1", "noop", `{}`),
	)
	api.RunStreams = []core.Stream{testutil.NewStream(testutil.RunEvent(requires), testutil.DoneEvent())}
	api.SubmitStreams = []core.Stream{testutil.NewStream(testutil.RunEvent(requires), testutil.DoneEvent())}

	noop := tool.NewFunctionTool("noop", "does nothing", map[string]any{"type": "object"},
		func(_ *core.ToolContext, _ map[string]any) (any, error) { return "ok", nil },
	)

	asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
		o.Tools = []tool.Tool{noop}
	})

	r := New(api, "thread_1", asst, func(o *Options) {
		o.MaxTurns = 1
	})

	err := r.Execute(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded max tool turns")
	assert.Len(t, api.SubmittedOutputs, 1)
	assert.Equal(t, []string{"run_1"}, api.CancelledRuns)
}

func TestRunRequestComposition(t *testing.T) {
	ctx := context.Background()

	execute := func(t *testing.T, asst *assistant.Assistant, optFns ...func(o *Options)) core.RunRequest {
		t.Helper()
		api := testutil.NewFakeAPI()
		api.RunStreams = []core.Stream{completedStream("run_1", "thread_1", asst.ID())}

		r := New(api, "thread_1", asst, optFns...)
		require.NoError(t, r.Execute(ctx))
		require.Len(t, api.CreateRunRequests, 1)
		return api.CreateRunRequests[0]
	}

	t.Run("defaults to server-side configuration", func(t *testing.T) {
		asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
			o.Instructions = assistant.NewInstructionFromText("base")
		})
		req := execute(t, asst)
		assert.Nil(t, req.Instructions)
		assert.Nil(t, req.Tools)
		assert.True(t, req.Stream)
	})

	t.Run("replacement instructions", func(t *testing.T) {
		asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
			o.Instructions = assistant.NewInstructionFromText("base")
		})
		req := execute(t, asst, func(o *Options) {
			o.Instructions = strPtr("replaced")
		})
		require.NotNil(t, req.Instructions)
		assert.Equal(t, "replaced", *req.Instructions)
	})

	t.Run("additional instructions compose with the assistant's", func(t *testing.T) {
		asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
			o.Instructions = assistant.NewInstructionFromText("base")
		})
		req := execute(t, asst, func(o *Options) {
			o.AdditionalInstructions = strPtr("extra")
		})
		require.NotNil(t, req.Instructions)
		assert.Equal(t, "base\n\nextra", *req.Instructions)
	})

	t.Run("replacement and additional instructions", func(t *testing.T) {
		asst := assistant.New("gpt-4o-mini")
		req := execute(t, asst, func(o *Options) {
			o.Instructions = strPtr("replaced")
			o.AdditionalInstructions = strPtr("extra")
		})
		require.NotNil(t, req.Instructions)
		assert.Equal(t, "replaced\n\nextra", *req.Instructions)
	})

	t.Run("additional tools extend the assistant's", func(t *testing.T) {
		base := tool.NewFunctionTool("base_tool", "base", map[string]any{"type": "object"},
			func(_ *core.ToolContext, _ map[string]any) (any, error) { return nil, nil },
		)
		extra := tool.NewFunctionTool("extra_tool", "extra", map[string]any{"type": "object"},
			func(_ *core.ToolContext, _ map[string]any) (any, error) { return nil, nil },
		)
		asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
			o.Tools = []tool.Tool{base}
		})
		req := execute(t, asst, func(o *Options) {
			o.AdditionalTools = []tool.Tool{extra}
		})
		require.Len(t, req.Tools, 2)
		assert.Equal(t, "base_tool", req.Tools[0].Function.Name)
		assert.Equal(t, "extra_tool", req.Tools[1].Function.Name)
	})

	t.Run("replacement tools drop the assistant's", func(t *testing.T) {
		base := tool.NewFunctionTool("base_tool", "base", map[string]any{"type": "object"},
			func(_ *core.ToolContext, _ map[string]any) (any, error) { return nil, nil },
		)
		repl := tool.NewFunctionTool("replacement_tool", "replacement", map[string]any{"type": "object"},
			func(_ *core.ToolContext, _ map[string]any) (any, error) { return nil, nil },
		)
		asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
			o.Tools = []tool.Tool{base}
		})
		req := execute(t, asst, func(o *Options) {
			o.Tools = []tool.Tool{repl}
		})
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "replacement_tool", req.Tools[0].Function.Name)
	})
}

func TestSeedMessagesAreReplayedAndSorted(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()
	api.RunStreams = []core.Stream{completedStream("run_1", "thread_1", "asst_1")}

	late := testutil.TextMessage("msg_late", "thread_1", "assistant", "second", 5)
	early := testutil.TextMessage("msg_early", "thread_1", "user", "first", 1)

	factory, handlers := recordingFactory()
	r := New(api, "thread_1", assistant.New("gpt-4o-mini"), func(o *Options) {
		o.Handler = factory
		o.Messages = []core.Message{late, early}
	})

	require.NoError(t, r.Execute(ctx))

	require.Len(t, *handlers, 1)
	replayed := (*handlers)[0].messages
	require.GreaterOrEqual(t, len(replayed), 2)
	assert.Equal(t, "msg_early", replayed[0].ID)
	assert.Equal(t, "msg_late", replayed[1].ID)

	msgs := r.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg_early", msgs[0].ID)
	assert.Equal(t, "msg_late", msgs[1].ID)
	assert.Equal(t, "msg_1", msgs[2].ID)
}

func TestEphemeralAssistantLifecycle(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()
	api.RunStreams = []core.Stream{completedStream("run_1", "thread_1", "asst_1")}

	asst := assistant.New("gpt-4o-mini")
	r := New(api, "thread_1", asst)

	require.NoError(t, r.Execute(ctx))

	assert.Len(t, api.CreatedAssistants, 1, "ephemeral assistant is created for the run")
	assert.Equal(t, []string{"asst_1"}, api.DeletedAssistants, "and deleted afterwards")
	assert.Empty(t, asst.ID())

	require.Len(t, api.CreateRunRequests, 1)
	assert.Equal(t, "asst_1", api.CreateRunRequests[0].AssistantID)
}

func TestPreAndPostRunHooks(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()
	api.RunStreams = []core.Stream{completedStream("run_1", "thread_1", "asst_1")}

	var order []string
	asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
		o.PreRun = func(context.Context) error {
			order = append(order, "pre")
			return nil
		}
		o.PostRun = func(context.Context) error {
			order = append(order, "post")
			return nil
		}
	})

	r := New(api, "thread_1", asst)
	require.NoError(t, r.Execute(ctx))
	assert.Equal(t, []string{"pre", "post"}, order)
}

func TestFailedRunIsNotAnExecuteError(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()

	failed := testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusFailed)
	failed.LastError = &core.LastError{Code: "server_error", Message: "the model had a bad day"}
	api.RunStreams = []core.Stream{testutil.NewStream(testutil.RunEvent(failed), testutil.DoneEvent())}

	r := New(api, "thread_1", assistant.New("gpt-4o-mini"))
	require.NoError(t, r.Execute(ctx))

	cur := r.Current()
	require.NotNil(t, cur)
	assert.Equal(t, core.RunStatusFailed, cur.Status)
	require.NotNil(t, cur.LastError)
	assert.Equal(t, "server_error", cur.LastError.Code)
}

func TestErrorEventAbortsExecute(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()

	api.RunStreams = []core.Stream{testutil.NewStream(
		testutil.RunEvent(testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusQueued)),
		testutil.Event("error", core.APIError{Code: "rate_limit_exceeded", Message: "slow down"}),
	)}

	factory, handlers := recordingFactory()
	r := New(api, "thread_1", assistant.New("gpt-4o-mini"), func(o *Options) {
		o.Handler = factory
	})

	err := r.Execute(ctx)
	require.Error(t, err)

	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "rate_limit_exceeded", apiErr.Code)

	require.Len(t, *handlers, 1)
	assert.ErrorAs(t, (*handlers)[0].err, &apiErr)
}

func TestRefreshAndCancelRequireStart(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()

	r := New(api, "thread_1", assistant.New("gpt-4o-mini"))
	assert.ErrorIs(t, r.Refresh(ctx), ErrNotStarted)
	assert.ErrorIs(t, r.Cancel(ctx), ErrNotStarted)
}

func TestParallelToolExecutionPreservesOrder(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()

	calls := []core.ToolCall{
		testutil.FunctionCall("call_1", "tag", `{"value":"a"}`),
		testutil.FunctionCall("call_2", "tag", `{"value":"b"}`),
		testutil.FunctionCall("call_3", "tag", `{"value":"c"}`),
	}
	requires := testutil.RequireToolCalls(
		testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusRequiresAction), calls...)
	api.RunStreams = []core.Stream{testutil.NewStream(testutil.RunEvent(requires), testutil.DoneEvent())}
	api.SubmitStreams = []core.Stream{testutil.NewStream(
		testutil.RunEvent(testutil.NewRun("run_1", "thread_1", "asst_1", core.RunStatusCompleted)),
		testutil.DoneEvent(),
	)}

	tag := tool.NewFunctionTool("tag", "returns its argument", map[string]any{"type": "object"},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["value"].(string), nil
		},
	)

	asst := assistant.New("gpt-4o-mini", func(o *assistant.Options) {
		o.Tools = []tool.Tool{tag}
	})

	r := New(api, "thread_1", asst, func(o *Options) {
		o.MaxParallelTools = 3
	})
	require.NoError(t, r.Execute(ctx))

	require.Len(t, api.SubmittedOutputs, 1)
	outputs := api.SubmittedOutputs[0]
	require.Len(t, outputs, 3)
	assert.Equal(t, []core.ToolOutput{
		{ToolCallID: "call_1", Output: "a"},
		{ToolCallID: "call_2", Output: "b"},
		{ToolCallID: "call_3", Output: "c"},
	}, outputs)
}
