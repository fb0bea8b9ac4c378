package handler

import "github.com/hupe1980/threadrun/core"

// Channel bridges a run's raw stream events onto a Go channel for async
// consumers (UIs, the runner's sync drain). The channel is closed on OnDone
// or OnError; a terminal error is retrievable afterwards via Err.
type Channel struct {
	Base

	ch     chan core.StreamEvent
	err    error
	closed bool
}

// NewChannel creates a Channel handler with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer < 0 {
		buffer = 0
	}
	return &Channel{ch: make(chan core.StreamEvent, buffer)}
}

// C returns the receive side. It is closed when the run finishes.
func (c *Channel) C() <-chan core.StreamEvent { return c.ch }

// Err returns the terminal error, valid after C is closed.
func (c *Channel) Err() error { return c.err }

// OnEvent forwards the raw event. Sends block when the buffer is full, which
// backpressures the drain loop rather than dropping events.
func (c *Channel) OnEvent(ev core.StreamEvent) {
	if c.closed {
		return
	}
	c.ch <- ev
}

// OnError records the terminal error and closes the channel.
func (c *Channel) OnError(err error) {
	if c.closed {
		return
	}
	c.err = err
	c.closed = true
	close(c.ch)
}

// OnDone closes the channel.
func (c *Channel) OnDone() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
