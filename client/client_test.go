package client

import (
	"context"
	"fmt"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/threadrun/core"
)

// fakeCaller records requests and writes scripted responses.
type fakeCaller struct {
	method string
	path   string
	params any

	respond func(res any)
	err     error
}

func (f *fakeCaller) record(method, path string, params, res any) error {
	f.method = method
	f.path = path
	f.params = params
	if f.err != nil {
		return f.err
	}
	if f.respond != nil && res != nil {
		f.respond(res)
	}
	return nil
}

func (f *fakeCaller) Get(_ context.Context, path string, params, res any, _ ...option.RequestOption) error {
	return f.record("GET", path, params, res)
}

func (f *fakeCaller) Post(_ context.Context, path string, params, res any, _ ...option.RequestOption) error {
	return f.record("POST", path, params, res)
}

func (f *fakeCaller) Delete(_ context.Context, path string, params, res any, _ ...option.RequestOption) error {
	return f.record("DELETE", path, params, res)
}

func newTestClient(fake *fakeCaller) *Client {
	c := New()
	c.caller = fake
	return c
}

func TestCreateAssistant(t *testing.T) {
	fake := &fakeCaller{respond: func(res any) {
		*(res.(*core.Assistant)) = core.Assistant{ID: "asst_1", Model: "gpt-4o-mini"}
	}}
	c := newTestClient(fake)

	a, err := c.CreateAssistant(context.Background(), core.AssistantRequest{Model: "gpt-4o-mini", Name: "Tester"})
	require.NoError(t, err)
	assert.Equal(t, "asst_1", a.ID)

	assert.Equal(t, "POST", fake.method)
	assert.Equal(t, "assistants", fake.path)

	req, ok := fake.params.(core.AssistantRequest)
	require.True(t, ok)
	assert.Equal(t, "Tester", req.Name)
}

func TestRunEndpointsUsePathParameters(t *testing.T) {
	fake := &fakeCaller{respond: func(res any) {
		if r, ok := res.(*core.Run); ok {
			*r = core.Run{ID: "run_1", Status: core.RunStatusCancelled}
		}
	}}
	c := newTestClient(fake)

	_, err := c.RetrieveRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	assert.Equal(t, "GET", fake.method)
	assert.Equal(t, "threads/thread_1/runs/run_1", fake.path)

	_, err = c.CancelRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	assert.Equal(t, "POST", fake.method)
	assert.Equal(t, "threads/thread_1/runs/run_1/cancel", fake.path)

	err = c.DeleteThread(context.Background(), "thread_1")
	require.NoError(t, err)
	assert.Equal(t, "DELETE", fake.method)
	assert.Equal(t, "threads/thread_1", fake.path)
}

func TestListPath(t *testing.T) {
	assert.Equal(t, "threads/t/messages", listPath("threads/t/messages", core.ListOptions{}))

	got := listPath("threads/t/messages", core.ListOptions{Limit: 20, Order: "asc", After: "msg_5"})
	assert.Equal(t, "threads/t/messages?after=msg_5&limit=20&order=asc", got)

	got = listPath("threads/t/runs/r/steps", core.ListOptions{Before: "step_9"})
	assert.Equal(t, "threads/t/runs/r/steps?before=step_9", got)
}

func TestStreamingRequestsForceStreamFlag(t *testing.T) {
	fake := &fakeCaller{err: fmt.Errorf("connection refused")}
	c := newTestClient(fake)

	_, err := c.CreateRunStream(context.Background(), "thread_1", core.RunRequest{AssistantID: "asst_1"})
	require.Error(t, err)
	assert.Equal(t, "threads/thread_1/runs", fake.path)

	req, ok := fake.params.(core.RunRequest)
	require.True(t, ok)
	assert.True(t, req.Stream)

	_, err = c.SubmitToolOutputsStream(context.Background(), "thread_1", "run_1", core.SubmitToolOutputsRequest{
		ToolOutputs: []core.ToolOutput{{ToolCallID: "call_1", Output: "ok"}},
	})
	require.Error(t, err)
	assert.Equal(t, "threads/thread_1/runs/run_1/submit_tool_outputs", fake.path)

	sreq, ok := fake.params.(core.SubmitToolOutputsRequest)
	require.True(t, ok)
	assert.True(t, sreq.Stream)
}

func TestRequestErrorsAreWrapped(t *testing.T) {
	fake := &fakeCaller{err: fmt.Errorf("boom")}
	c := newTestClient(fake)

	_, err := c.CreateThread(context.Background(), core.ThreadRequest{})
	assert.ErrorContains(t, err, "create thread")

	_, err = c.ListMessages(context.Background(), "thread_1", core.ListOptions{})
	assert.ErrorContains(t, err, "list messages")
}
