package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// EventKind classifies stream events into the categories the orchestration
// loop dispatches on.
type EventKind int

const (
	// KindUnknown marks events the client does not recognize; they are logged
	// and skipped so protocol additions do not break the loop.
	KindUnknown EventKind = iota
	// KindThread carries a thread object.
	KindThread
	// KindRun carries a run snapshot; the run's Status field is authoritative.
	KindRun
	// KindRunStep carries a run step snapshot.
	KindRunStep
	// KindRunStepDelta carries an incremental run step update.
	KindRunStepDelta
	// KindMessage carries a message snapshot.
	KindMessage
	// KindMessageDelta carries an incremental message update.
	KindMessageDelta
	// KindError carries a server error payload.
	KindError
	// KindDone marks the end of the stream.
	KindDone
)

// StreamEvent is one server-sent event from a streamed run. Event is the SSE
// event name (e.g. "thread.run.created", "thread.message.delta") and Data the
// raw JSON payload.
//
// Some SSE layers deliver the event name and payload as a wrapper object,
// others deliver the bare payload only. UnmarshalJSON accepts both; when the
// name is absent it is recovered from the payload's object field, which every
// vendor object carries. Dispatch must therefore key on object identity plus
// status, never on the exact event name (see Kind).
type StreamEvent struct {
	Event string
	Data  json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *StreamEvent) UnmarshalJSON(b []byte) error {
	if ev := gjson.GetBytes(b, "event"); ev.Exists() {
		if data := gjson.GetBytes(b, "data"); data.Exists() {
			e.Event = ev.String()
			e.Data = json.RawMessage(data.Raw)
			return nil
		}
	}
	e.Event = gjson.GetBytes(b, "object").String()
	e.Data = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON implements json.Marshaler using the wrapper form.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	data := e.Data
	if data == nil {
		data = json.RawMessage("null")
	}
	return json.Marshal(struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}{Event: e.Event, Data: data})
}

// Kind classifies the event. The classification tolerates both the dotted
// lifecycle names ("thread.run.completed") and bare object identities
// ("thread.run").
func (e StreamEvent) Kind() EventKind {
	name := e.Event
	switch {
	case name == "done":
		return KindDone
	case name == "error":
		return KindError
	case strings.HasPrefix(name, "thread.run.step"):
		if strings.HasSuffix(name, ".delta") {
			return KindRunStepDelta
		}
		return KindRunStep
	case strings.HasPrefix(name, "thread.message"):
		if strings.HasSuffix(name, ".delta") {
			return KindMessageDelta
		}
		return KindMessage
	case strings.HasPrefix(name, "thread.run"):
		return KindRun
	case name == "thread" || name == "thread.created":
		return KindThread
	default:
		return KindUnknown
	}
}

// AsRun decodes the payload as a run object.
func (e StreamEvent) AsRun() (Run, error) {
	var r Run
	if err := json.Unmarshal(e.Data, &r); err != nil {
		return Run{}, fmt.Errorf("decode run event: %w", err)
	}
	return r, nil
}

// AsMessage decodes the payload as a message object.
func (e StreamEvent) AsMessage() (Message, error) {
	var m Message
	if err := json.Unmarshal(e.Data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message event: %w", err)
	}
	return m, nil
}

// AsMessageDelta decodes the payload as a message delta.
func (e StreamEvent) AsMessageDelta() (MessageDelta, error) {
	var d MessageDelta
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return MessageDelta{}, fmt.Errorf("decode message delta event: %w", err)
	}
	return d, nil
}

// AsRunStep decodes the payload as a run step object.
func (e StreamEvent) AsRunStep() (RunStep, error) {
	var s RunStep
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return RunStep{}, fmt.Errorf("decode run step event: %w", err)
	}
	return s, nil
}

// AsRunStepDelta decodes the payload as a run step delta.
func (e StreamEvent) AsRunStepDelta() (RunStepDelta, error) {
	var d RunStepDelta
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return RunStepDelta{}, fmt.Errorf("decode run step delta event: %w", err)
	}
	return d, nil
}

// AsError decodes the payload as a server error.
func (e StreamEvent) AsError() error {
	var apiErr APIError
	if err := json.Unmarshal(e.Data, &apiErr); err != nil || apiErr.Message == "" {
		return &APIError{Message: string(e.Data)}
	}
	return &apiErr
}

// APIError is a server-reported error delivered on the event stream.
type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error: %s", e.Message)
}

// Stream is the minimal iterator contract over a server-sent event stream.
// The SSE implementation returned by the client package satisfies it, as do
// the scripted streams used in tests.
//
// Usage follows the SDK convention:
//
//	for stream.Next() {
//	    ev := stream.Current()
//	    ...
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream interface {
	Next() bool
	Current() StreamEvent
	Err() error
	Close() error
}
