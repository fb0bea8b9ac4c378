// Package handler defines the pluggable callbacks a run drains its event
// stream through. The run loop creates a fresh Handler per streaming cycle
// (initial run creation and every tool output submission), mirroring the
// per-stream lifetime of the vendor protocol. Implementations therefore only
// observe one stream each; cross-cycle state lives on the run itself.
package handler

import "github.com/hupe1980/threadrun/core"

// Handler receives lifecycle notifications while a run stream is drained.
// Delta hooks additionally receive the materialized snapshot the delta was
// applied to. Callbacks are invoked sequentially from the draining goroutine;
// implementations must not block indefinitely.
type Handler interface {
	// OnEvent is called for every raw stream event before typed dispatch.
	OnEvent(ev core.StreamEvent)

	// OnRun is called with every run snapshot, including status transitions.
	OnRun(run core.Run)

	// OnMessageCreated is called when a message is first observed.
	OnMessageCreated(msg core.Message)

	// OnMessageDelta is called with each incremental message update and the
	// snapshot it produced.
	OnMessageDelta(delta core.MessageDelta, snapshot core.Message)

	// OnMessageDone is called when a message reaches a final status. It is
	// also used to replay previously accumulated messages before a stream
	// starts.
	OnMessageDone(msg core.Message)

	// OnStepCreated is called when a run step is first observed.
	OnStepCreated(step core.RunStep)

	// OnStepDelta is called with each incremental step update and the
	// snapshot it produced.
	OnStepDelta(delta core.RunStepDelta, snapshot core.RunStep)

	// OnStepDone is called when a run step reaches a final status.
	OnStepDone(step core.RunStep)

	// OnError is called once when the stream or the surrounding loop fails.
	OnError(err error)

	// OnDone is called after the run reached a terminal state and the loop
	// finished without error.
	OnDone()
}

// Factory produces a Handler for one streaming cycle.
type Factory func() Handler

// Base is an embeddable no-op implementation of Handler. Embed it and
// override the hooks of interest.
type Base struct{}

// OnEvent implements Handler.
func (Base) OnEvent(core.StreamEvent) {}

// OnRun implements Handler.
func (Base) OnRun(core.Run) {}

// OnMessageCreated implements Handler.
func (Base) OnMessageCreated(core.Message) {}

// OnMessageDelta implements Handler.
func (Base) OnMessageDelta(core.MessageDelta, core.Message) {}

// OnMessageDone implements Handler.
func (Base) OnMessageDone(core.Message) {}

// OnStepCreated implements Handler.
func (Base) OnStepCreated(core.RunStep) {}

// OnStepDelta implements Handler.
func (Base) OnStepDelta(core.RunStepDelta, core.RunStep) {}

// OnStepDone implements Handler.
func (Base) OnStepDone(core.RunStep) {}

// OnError implements Handler.
func (Base) OnError(error) {}

// OnDone implements Handler.
func (Base) OnDone() {}

// NoOp returns a Factory producing handlers that ignore everything.
func NoOp() Factory {
	return func() Handler { return Base{} }
}
