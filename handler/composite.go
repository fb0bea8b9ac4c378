package handler

import "github.com/hupe1980/threadrun/core"

// Composite fans every callback out to multiple handlers in order.
type Composite struct {
	handlers []Handler
}

// NewComposite combines handlers into one.
func NewComposite(handlers ...Handler) *Composite {
	return &Composite{handlers: handlers}
}

// OnEvent implements Handler.
func (c *Composite) OnEvent(ev core.StreamEvent) {
	for _, h := range c.handlers {
		h.OnEvent(ev)
	}
}

// OnRun implements Handler.
func (c *Composite) OnRun(run core.Run) {
	for _, h := range c.handlers {
		h.OnRun(run)
	}
}

// OnMessageCreated implements Handler.
func (c *Composite) OnMessageCreated(msg core.Message) {
	for _, h := range c.handlers {
		h.OnMessageCreated(msg)
	}
}

// OnMessageDelta implements Handler.
func (c *Composite) OnMessageDelta(delta core.MessageDelta, snapshot core.Message) {
	for _, h := range c.handlers {
		h.OnMessageDelta(delta, snapshot)
	}
}

// OnMessageDone implements Handler.
func (c *Composite) OnMessageDone(msg core.Message) {
	for _, h := range c.handlers {
		h.OnMessageDone(msg)
	}
}

// OnStepCreated implements Handler.
func (c *Composite) OnStepCreated(step core.RunStep) {
	for _, h := range c.handlers {
		h.OnStepCreated(step)
	}
}

// OnStepDelta implements Handler.
func (c *Composite) OnStepDelta(delta core.RunStepDelta, snapshot core.RunStep) {
	for _, h := range c.handlers {
		h.OnStepDelta(delta, snapshot)
	}
}

// OnStepDone implements Handler.
func (c *Composite) OnStepDone(step core.RunStep) {
	for _, h := range c.handlers {
		h.OnStepDone(step)
	}
}

// OnError implements Handler.
func (c *Composite) OnError(err error) {
	for _, h := range c.handlers {
		h.OnError(err)
	}
}

// OnDone implements Handler.
func (c *Composite) OnDone() {
	for _, h := range c.handlers {
		h.OnDone()
	}
}
