package handler

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hupe1980/threadrun/core"
)

// Printer streams assistant text to a writer as it arrives: message deltas
// are written verbatim, completed assistant messages terminate the line.
// It is the default handler of interactive surfaces (CLI chat, examples).
type Printer struct {
	Base

	mu sync.Mutex
	w  io.Writer

	// open tracks whether delta text has been written without a trailing
	// newline yet.
	open bool
}

// NewPrinter creates a Printer writing to w (os.Stdout if nil).
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w}
}

// OnMessageDelta writes the text fragment of the delta.
func (p *Printer) OnMessageDelta(delta core.MessageDelta, _ core.Message) {
	text := delta.Text()
	if text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, text)
	p.open = true
}

// OnMessageDone terminates the streamed line. Replayed seed messages (no
// preceding deltas) are printed in full.
func (p *Printer) OnMessageDone(msg core.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		fmt.Fprintln(p.w)
		p.open = false
		return
	}
	if text := msg.Text(); text != "" {
		fmt.Fprintln(p.w, text)
	}
}

// OnError reports the failure on its own line.
func (p *Printer) OnError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		fmt.Fprintln(p.w)
		p.open = false
	}
	fmt.Fprintf(p.w, "error: %v\n", err)
}
