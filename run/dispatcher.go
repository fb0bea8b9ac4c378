package run

import (
	"fmt"

	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/handler"
)

// drain consumes a stream to exhaustion, folding every event into the run's
// accumulated state and fanning it out to the handler. It returns the first
// decode, server or transport error.
func (r *Run) drain(stream core.Stream, h handler.Handler) error {
	defer func() { _ = stream.Close() }()

	for stream.Next() {
		ev := stream.Current()
		h.OnEvent(ev)

		if err := r.dispatch(ev, h); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	return nil
}

func (r *Run) dispatch(ev core.StreamEvent, h handler.Handler) error {
	switch ev.Kind() {
	case core.KindRun:
		run, err := ev.AsRun()
		if err != nil {
			return err
		}
		r.setCurrent(run)
		h.OnRun(run)

	case core.KindMessage:
		msg, err := ev.AsMessage()
		if err != nil {
			return err
		}
		r.applyMessage(msg, h)

	case core.KindMessageDelta:
		delta, err := ev.AsMessageDelta()
		if err != nil {
			return err
		}
		snapshot := r.applyMessageDelta(delta)
		h.OnMessageDelta(delta, snapshot)

	case core.KindRunStep:
		step, err := ev.AsRunStep()
		if err != nil {
			return err
		}
		r.applyStep(step, h)

	case core.KindRunStepDelta:
		delta, err := ev.AsRunStepDelta()
		if err != nil {
			return err
		}
		snapshot := r.applyStepDelta(delta)
		h.OnStepDelta(delta, snapshot)

	case core.KindError:
		return ev.AsError()

	case core.KindThread, core.KindDone:
		// Thread snapshots carry no run state; done is handled by stream end.

	default:
		r.logger.Debug("run.event.unknown", "event", ev.Event)
	}

	return nil
}

// applyMessage stores a message snapshot, firing created/done callbacks on
// the transitions the snapshot reveals.
func (r *Run) applyMessage(msg core.Message, h handler.Handler) {
	r.mu.Lock()
	_, seen := r.messages[msg.ID]
	r.messages[msg.ID] = msg
	r.mu.Unlock()

	if !seen {
		h.OnMessageCreated(msg)
	}
	if msg.Done() {
		h.OnMessageDone(msg)
	}
}

// applyMessageDelta merges a content delta into the accumulated message and
// returns the updated snapshot. Deltas arriving before the creation snapshot
// start from an empty skeleton.
func (r *Run) applyMessageDelta(delta core.MessageDelta) core.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[delta.ID]
	if !ok {
		msg = core.Message{ID: delta.ID, Object: "thread.message"}
	}
	if delta.Delta.Role != "" {
		msg.Role = delta.Delta.Role
	}

	for _, dc := range delta.Delta.Content {
		for len(msg.Content) <= dc.Index {
			msg.Content = append(msg.Content, core.MessageContent{})
		}
		part := &msg.Content[dc.Index]
		if dc.Type != "" {
			part.Type = dc.Type
		}
		if dc.Text != nil {
			if part.Text == nil {
				part.Text = &core.MessageText{}
			}
			part.Text.Value += dc.Text.Value
			part.Text.Annotations = append(part.Text.Annotations, dc.Text.Annotations...)
		}
	}

	r.messages[delta.ID] = msg

	return msg
}

// applyStep stores a run step snapshot, firing created/done callbacks on the
// transitions the snapshot reveals.
func (r *Run) applyStep(step core.RunStep, h handler.Handler) {
	r.mu.Lock()
	_, seen := r.steps[step.ID]
	r.steps[step.ID] = step
	r.mu.Unlock()

	if !seen {
		h.OnStepCreated(step)
	}
	if step.Done() {
		h.OnStepDone(step)
	}
}

// applyStepDelta merges streamed tool-call argument fragments into the
// accumulated step, keyed by the tool call's stream index, and returns the
// updated snapshot.
func (r *Run) applyStepDelta(delta core.RunStepDelta) core.RunStep {
	r.mu.Lock()
	defer r.mu.Unlock()

	step, ok := r.steps[delta.ID]
	if !ok {
		step = core.RunStep{ID: delta.ID, Object: "thread.run.step"}
	}

	details := delta.Delta.StepDetails
	if details == nil {
		r.steps[delta.ID] = step
		return step
	}
	if step.StepDetails == nil {
		step.StepDetails = &core.StepDetails{}
	}
	if details.Type != "" {
		step.StepDetails.Type = details.Type
	}
	if details.MessageCreation != nil {
		step.StepDetails.MessageCreation = details.MessageCreation
	}

	for _, dc := range details.ToolCalls {
		for len(step.StepDetails.ToolCalls) <= dc.Index {
			step.StepDetails.ToolCalls = append(step.StepDetails.ToolCalls, core.ToolCall{Index: len(step.StepDetails.ToolCalls)})
		}
		tc := &step.StepDetails.ToolCalls[dc.Index]
		if dc.ID != "" {
			tc.ID = dc.ID
		}
		if dc.Type != "" {
			tc.Type = dc.Type
		}
		tc.Function.Name += dc.Function.Name
		tc.Function.Arguments += dc.Function.Arguments
		tc.Function.Output += dc.Function.Output
	}

	r.steps[delta.ID] = step

	return step
}
