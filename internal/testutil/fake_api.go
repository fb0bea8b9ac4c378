// Package testutil provides a scripted in-memory implementation of core.API
// and stream event builders for tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hupe1980/threadrun/core"
)

// FakeAPI is a scripted core.API. Streams are consumed in FIFO order from
// RunStreams and SubmitStreams; every mutating call is recorded for
// assertions. Safe for concurrent use.
type FakeAPI struct {
	mu sync.Mutex

	// RunStreams are returned, in order, by CreateRunStream.
	RunStreams []core.Stream
	// SubmitStreams are returned, in order, by SubmitToolOutputsStream.
	SubmitStreams []core.Stream

	// Runs is the run state served by RetrieveRun and CancelRun, keyed by run ID.
	Runs map[string]core.Run
	// Assistants is the assistant state served by RetrieveAssistant.
	Assistants map[string]core.Assistant
	// Messages is the per-thread message store served by ListMessages.
	Messages map[string][]core.Message
	// Steps is the per-run step store served by ListRunSteps.
	Steps map[string][]core.RunStep
	// PageSize splits ListMessages results into pages when > 0.
	PageSize int

	// Err, when set, is returned by every call.
	Err error

	// Recorded calls.
	CreatedAssistants []core.AssistantRequest
	DeletedAssistants []string
	CreatedThreads    []core.ThreadRequest
	DeletedThreads    []string
	CreatedMessages   []core.MessageRequest
	CreateRunRequests []core.RunRequest
	SubmittedOutputs  [][]core.ToolOutput
	CancelledRuns     []string

	assistantSeq int
	threadSeq    int
	messageSeq   int
}

// NewFakeAPI creates an empty FakeAPI.
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		Runs:       map[string]core.Run{},
		Assistants: map[string]core.Assistant{},
		Messages:   map[string][]core.Message{},
		Steps:      map[string][]core.RunStep{},
	}
}

var _ core.API = (*FakeAPI)(nil)

// CreateAssistant implements core.API.
func (f *FakeAPI) CreateAssistant(_ context.Context, req core.AssistantRequest) (core.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return core.Assistant{}, f.Err
	}
	f.CreatedAssistants = append(f.CreatedAssistants, req)
	f.assistantSeq++
	a := core.Assistant{
		ID:           fmt.Sprintf("asst_%d", f.assistantSeq),
		Object:       "assistant",
		Model:        req.Model,
		Name:         req.Name,
		Description:  req.Description,
		Instructions: req.Instructions,
		Tools:        req.Tools,
		Metadata:     req.Metadata,
		Temperature:  req.Temperature,
	}
	f.Assistants[a.ID] = a
	return a, nil
}

// RetrieveAssistant implements core.API.
func (f *FakeAPI) RetrieveAssistant(_ context.Context, assistantID string) (core.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return core.Assistant{}, f.Err
	}
	a, ok := f.Assistants[assistantID]
	if !ok {
		return core.Assistant{}, fmt.Errorf("assistant %s not found", assistantID)
	}
	return a, nil
}

// DeleteAssistant implements core.API.
func (f *FakeAPI) DeleteAssistant(_ context.Context, assistantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.DeletedAssistants = append(f.DeletedAssistants, assistantID)
	delete(f.Assistants, assistantID)
	return nil
}

// CreateThread implements core.API.
func (f *FakeAPI) CreateThread(_ context.Context, req core.ThreadRequest) (core.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return core.Thread{}, f.Err
	}
	f.CreatedThreads = append(f.CreatedThreads, req)
	f.threadSeq++
	return core.Thread{
		ID:       fmt.Sprintf("thread_%d", f.threadSeq),
		Object:   "thread",
		Metadata: req.Metadata,
	}, nil
}

// DeleteThread implements core.API.
func (f *FakeAPI) DeleteThread(_ context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.DeletedThreads = append(f.DeletedThreads, threadID)
	delete(f.Messages, threadID)
	return nil
}

// CreateMessage implements core.API.
func (f *FakeAPI) CreateMessage(_ context.Context, threadID string, req core.MessageRequest) (core.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return core.Message{}, f.Err
	}
	f.CreatedMessages = append(f.CreatedMessages, req)
	f.messageSeq++
	msg := core.Message{
		ID:        fmt.Sprintf("msg_%d", f.messageSeq),
		Object:    "thread.message",
		CreatedAt: int64(f.messageSeq),
		ThreadID:  threadID,
		Status:    "completed",
		Role:      req.Role,
		Content: []core.MessageContent{{
			Type: "text",
			Text: &core.MessageText{Value: req.Content},
		}},
	}
	f.Messages[threadID] = append(f.Messages[threadID], msg)
	return msg, nil
}

// ListMessages implements core.API.
func (f *FakeAPI) ListMessages(_ context.Context, threadID string, opts core.ListOptions) (core.MessageList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return core.MessageList{}, f.Err
	}

	all := f.Messages[threadID]

	start := 0
	if opts.After != "" {
		for i, m := range all {
			if m.ID == opts.After {
				start = i + 1
				break
			}
		}
	}

	end := len(all)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}

	page := all[start:end]
	list := core.MessageList{Object: "list", Data: page, HasMore: end < len(all)}
	if len(page) > 0 {
		list.FirstID = page[0].ID
		list.LastID = page[len(page)-1].ID
	}
	return list, nil
}

// CreateRunStream implements core.API.
func (f *FakeAPI) CreateRunStream(_ context.Context, threadID string, req core.RunRequest) (core.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.CreateRunRequests = append(f.CreateRunRequests, req)
	if len(f.RunStreams) == 0 {
		return nil, fmt.Errorf("no run stream scripted for thread %s", threadID)
	}
	s := f.RunStreams[0]
	f.RunStreams = f.RunStreams[1:]
	return s, nil
}

// SubmitToolOutputsStream implements core.API.
func (f *FakeAPI) SubmitToolOutputsStream(_ context.Context, _, runID string, req core.SubmitToolOutputsRequest) (core.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.SubmittedOutputs = append(f.SubmittedOutputs, req.ToolOutputs)
	if len(f.SubmitStreams) == 0 {
		return nil, fmt.Errorf("no submit stream scripted for run %s", runID)
	}
	s := f.SubmitStreams[0]
	f.SubmitStreams = f.SubmitStreams[1:]
	return s, nil
}

// RetrieveRun implements core.API.
func (f *FakeAPI) RetrieveRun(_ context.Context, _, runID string) (core.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return core.Run{}, f.Err
	}
	run, ok := f.Runs[runID]
	if !ok {
		return core.Run{}, fmt.Errorf("run %s not found", runID)
	}
	return run, nil
}

// CancelRun implements core.API. The scripted run transitions to cancelled.
func (f *FakeAPI) CancelRun(_ context.Context, _, runID string) (core.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return core.Run{}, f.Err
	}
	f.CancelledRuns = append(f.CancelledRuns, runID)
	run, ok := f.Runs[runID]
	if !ok {
		run = core.Run{ID: runID, Object: "thread.run"}
	}
	run.Status = core.RunStatusCancelled
	run.RequiredAction = nil
	f.Runs[runID] = run
	return run, nil
}

// ListRunSteps implements core.API.
func (f *FakeAPI) ListRunSteps(_ context.Context, _, runID string, _ core.ListOptions) (core.RunStepList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return core.RunStepList{}, f.Err
	}
	steps := f.Steps[runID]
	list := core.RunStepList{Object: "list", Data: steps}
	if len(steps) > 0 {
		list.FirstID = steps[0].ID
		list.LastID = steps[len(steps)-1].ID
	}
	return list, nil
}

// Stream is a scripted core.Stream yielding a fixed event sequence and an
// optional terminal error.
type Stream struct {
	Events   []core.StreamEvent
	FinalErr error

	pos    int
	closed bool
}

// NewStream creates a scripted stream over events.
func NewStream(events ...core.StreamEvent) *Stream {
	return &Stream{Events: events}
}

// Next implements core.Stream.
func (s *Stream) Next() bool {
	if s.closed || s.pos >= len(s.Events) {
		return false
	}
	s.pos++
	return true
}

// Current implements core.Stream.
func (s *Stream) Current() core.StreamEvent { return s.Events[s.pos-1] }

// Err implements core.Stream.
func (s *Stream) Err() error { return s.FinalErr }

// Close implements core.Stream.
func (s *Stream) Close() error {
	s.closed = true
	return nil
}

// Event wraps payload into a StreamEvent with the given SSE event name.
func Event(name string, payload any) core.StreamEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return core.StreamEvent{Event: name, Data: raw}
}

// RunEvent builds a run lifecycle event named after the run status.
func RunEvent(run core.Run) core.StreamEvent {
	return Event("thread.run."+string(run.Status), run)
}

// MessageEvent builds a message lifecycle event.
func MessageEvent(name string, msg core.Message) core.StreamEvent {
	return Event(name, msg)
}

// MessageDeltaEvent builds a thread.message.delta event carrying one text
// fragment at content index 0.
func MessageDeltaEvent(messageID, text string) core.StreamEvent {
	return Event("thread.message.delta", core.MessageDelta{
		ID:     messageID,
		Object: "thread.message.delta",
		Delta: core.MessageDeltaBody{
			Content: []core.MessageDeltaContent{{
				Index: 0,
				Type:  "text",
				Text:  &core.MessageText{Value: text},
			}},
		},
	})
}

// StepEvent builds a run step lifecycle event.
func StepEvent(name string, step core.RunStep) core.StreamEvent {
	return Event(name, step)
}

// DoneEvent builds the terminal stream marker.
func DoneEvent() core.StreamEvent {
	return core.StreamEvent{Event: "done", Data: json.RawMessage(`"[DONE]"`)}
}

// NewRun builds a run object in the given status.
func NewRun(id, threadID, assistantID string, status core.RunStatus) core.Run {
	return core.Run{
		ID:          id,
		Object:      "thread.run",
		ThreadID:    threadID,
		AssistantID: assistantID,
		Status:      status,
	}
}

// RequireToolCalls marks run as requires_action with the given function calls.
func RequireToolCalls(run core.Run, calls ...core.ToolCall) core.Run {
	run.Status = core.RunStatusRequiresAction
	run.RequiredAction = &core.RequiredAction{
		Type:              core.RequiredActionSubmitToolOutputs,
		SubmitToolOutputs: &core.SubmitToolOutputs{ToolCalls: calls},
	}
	return run
}

// FunctionCall builds one function tool call.
func FunctionCall(id, name, args string) core.ToolCall {
	return core.ToolCall{
		ID:   id,
		Type: "function",
		Function: core.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

// TextMessage builds a completed text message.
func TextMessage(id, threadID, role, text string, createdAt int64) core.Message {
	return core.Message{
		ID:        id,
		Object:    "thread.message",
		CreatedAt: createdAt,
		ThreadID:  threadID,
		Status:    "completed",
		Role:      role,
		Content: []core.MessageContent{{
			Type: "text",
			Text: &core.MessageText{Value: text},
		}},
	}
}
