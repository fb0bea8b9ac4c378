// Package run implements the client-side control loop that executes a single
// assistant run against a thread: it starts a streamed run, materializes
// messages and steps from the event stream, executes local tool functions
// whenever the server reports a requires_action state, resubmits their
// outputs, and repeats until the server moves the run to a terminal status.
// All hard state-machine semantics (statuses, step ordering, retries) are
// owned by the remote service; this package only reacts to them.
package run

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/threadrun/assistant"
	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/handler"
	"github.com/hupe1980/threadrun/logging"
	"github.com/hupe1980/threadrun/tool"
)

var (
	// ErrNotStarted is returned by Refresh/Cancel before Execute ran.
	ErrNotStarted = errors.New("run has not been started yet")
	// ErrAlreadyStarted is returned by Execute on a reused Run.
	ErrAlreadyStarted = errors.New("run has already been started")
)

// Options configure one run. The zero value inherits everything from the
// assistant and streams through a no-op handler.
type Options struct {
	// Instructions replace the assistant's instructions for this run.
	Instructions *string
	// AdditionalInstructions are appended (blank-line separated) to the
	// effective instructions.
	AdditionalInstructions *string
	// Tools replace the assistant's tools for this run.
	Tools []tool.Tool
	// AdditionalTools are appended to the effective tool set.
	AdditionalTools []tool.Tool
	// Handler produces the stream handler; a fresh instance is created per
	// streaming cycle.
	Handler handler.Factory
	// Messages seed the run's accumulated message view; they are replayed to
	// the handler before streaming starts.
	Messages []core.Message
	// MaxTurns caps the number of requires_action cycles before the run is
	// cancelled client-side. 0 means the default; negative means unlimited.
	MaxTurns int
	// MaxParallelTools bounds concurrent local tool execution within one
	// requires_action batch. Defaults to sequential execution.
	MaxParallelTools int
	// Logger receives run lifecycle logs.
	Logger logging.Logger
}

// DefaultMaxTurns is the default cap on requires_action cycles.
const DefaultMaxTurns = 10

// Run orchestrates a single execution of an assistant against a thread.
// A Run is single-use: construct, Execute once, then inspect.
type Run struct {
	api       core.API
	threadID  string
	assistant *assistant.Assistant
	opts      Options
	logger    *logging.RunLogger

	mu       sync.RWMutex
	started  bool
	current  *core.Run
	messages map[string]core.Message
	steps    map[string]core.RunStep
	data     any
}

// New creates a Run bound to a thread and an assistant.
func New(api core.API, threadID string, asst *assistant.Assistant, optFns ...func(o *Options)) *Run {
	opts := Options{
		Handler:  handler.NoOp(),
		MaxTurns: DefaultMaxTurns,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Handler == nil {
		opts.Handler = handler.NoOp()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	r := &Run{
		api:       api,
		threadID:  threadID,
		assistant: asst,
		opts:      opts,
		logger:    logging.NewRunLogger(opts.Logger).WithComponent("run").WithThread(threadID),
		messages:  make(map[string]core.Message, len(opts.Messages)),
		steps:     map[string]core.RunStep{},
	}
	for _, m := range opts.Messages {
		r.messages[m.ID] = m
	}
	return r
}

// Execute drives the run to a terminal state. It returns once the server
// reports a terminal status, a tool cancelled the run, the turn cap was hit,
// or the stream failed. A failed terminal status is not an error here; check
// Current().Status and Current().LastError.
func (r *Run) Execute(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	release, err := r.assistant.Acquire(ctx, r.api)
	if err != nil {
		return fmt.Errorf("acquire assistant: %w", err)
	}
	defer func() {
		if rerr := release(ctx); rerr != nil {
			r.logger.Warn("run.assistant.release.error", "error", rerr.Error())
		}
	}()

	if err := r.assistant.PreRun(ctx); err != nil {
		return fmt.Errorf("pre-run hook: %w", err)
	}

	h := r.opts.Handler()

	// Replay previously accumulated messages so the handler sees the full
	// conversation it is joining.
	for _, m := range r.Messages() {
		h.OnMessageDone(m)
	}

	req, err := r.buildRequest(ctx)
	if err != nil {
		h.OnError(err)
		return err
	}

	r.logger.Debug("run.start", "assistant_id", r.assistant.ID())

	stream, err := r.api.CreateRunStream(ctx, r.threadID, req)
	if err != nil {
		err = fmt.Errorf("create run: %w", err)
		h.OnError(err)
		return err
	}
	if err := r.drain(stream, h); err != nil {
		h.OnError(err)
		return err
	}

	turns := 0
	for r.requiresAction() {
		turns++
		if max := r.maxTurns(); max > 0 && turns > max {
			err := fmt.Errorf("exceeded max tool turns: %d", max)
			r.cancelRemote(ctx)
			h.OnError(err)
			return err
		}

		outputs, err := r.executeToolCalls(ctx)
		if err != nil {
			var cre *tool.CancelRunError
			if errors.As(err, &cre) {
				r.logger.Debug("run.cancelled_by_tool")
				r.cancelRemote(ctx)
				r.mu.Lock()
				r.data = cre.Data
				r.mu.Unlock()
				break
			}
			h.OnError(err)
			return err
		}

		// Fresh handler per streaming cycle, matching the per-stream lifetime
		// of the protocol.
		h = r.opts.Handler()

		stream, err = r.api.SubmitToolOutputsStream(ctx, r.threadID, r.runID(), core.SubmitToolOutputsRequest{
			ToolOutputs: outputs,
			Stream:      true,
		})
		if err != nil {
			err = fmt.Errorf("submit tool outputs: %w", err)
			h.OnError(err)
			return err
		}
		if err := r.drain(stream, h); err != nil {
			h.OnError(err)
			return err
		}
	}

	if cur := r.Current(); cur != nil && cur.Status == core.RunStatusFailed && cur.LastError != nil {
		r.logger.Error("run.failed", "code", cur.LastError.Code, "message", cur.LastError.Message)
	}

	h.OnDone()

	if err := r.assistant.PostRun(ctx); err != nil {
		return fmt.Errorf("post-run hook: %w", err)
	}

	r.logger.Info("run.complete", "status", string(r.status()), "turns", turns)

	return nil
}

// Refresh replaces the local run snapshot with the current server state.
func (r *Run) Refresh(ctx context.Context) error {
	id := r.runID()
	if id == "" {
		return ErrNotStarted
	}
	remote, err := r.api.RetrieveRun(ctx, r.threadID, id)
	if err != nil {
		return fmt.Errorf("retrieve run %s: %w", id, err)
	}
	r.setCurrent(remote)
	return nil
}

// Cancel requests server-side cancellation and refreshes the snapshot.
func (r *Run) Cancel(ctx context.Context) error {
	id := r.runID()
	if id == "" {
		return ErrNotStarted
	}
	if _, err := r.api.CancelRun(ctx, r.threadID, id); err != nil {
		return fmt.Errorf("cancel run %s: %w", id, err)
	}
	return r.Refresh(ctx)
}

// Current returns a copy of the latest run snapshot, nil before the first
// run event arrived.
func (r *Run) Current() *core.Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil
	}
	cp := *r.current
	return &cp
}

// Data returns the payload a cancelling tool attached to the run.
func (r *Run) Data() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data
}

// ThreadID returns the thread the run executes against.
func (r *Run) ThreadID() string { return r.threadID }

// Messages returns the accumulated messages sorted by creation time.
func (r *Run) Messages() []core.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := make([]core.Message, 0, len(r.messages))
	for _, m := range r.messages {
		msgs = append(msgs, m)
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt < msgs[j].CreatedAt })
	return msgs
}

// Steps returns the accumulated run steps sorted by creation time.
func (r *Run) Steps() []core.RunStep {
	r.mu.RLock()
	defer r.mu.RUnlock()
	steps := make([]core.RunStep, 0, len(r.steps))
	for _, s := range r.steps {
		steps = append(steps, s)
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].CreatedAt < steps[j].CreatedAt })
	return steps
}

// instructions composes the effective instruction override: nil when neither
// replacement nor additional instructions are set, so the server-side
// assistant defaults apply.
func (r *Run) instructions(ctx context.Context) (*string, error) {
	if r.opts.Instructions == nil && r.opts.AdditionalInstructions == nil {
		return nil, nil
	}

	var base string
	if r.opts.Instructions != nil {
		base = *r.opts.Instructions
	} else {
		resolved, err := r.assistant.Instructions(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve assistant instructions: %w", err)
		}
		base = resolved
	}

	if r.opts.AdditionalInstructions != nil {
		base = strings.Join([]string{base, *r.opts.AdditionalInstructions}, "\n\n")
	}

	return &base, nil
}

// tools returns the effective local tool set: the replacement set or the
// assistant's, plus any additional tools.
func (r *Run) tools() []tool.Tool {
	var tools []tool.Tool
	if r.opts.Tools != nil {
		tools = append(tools, r.opts.Tools...)
	} else {
		tools = append(tools, r.assistant.Tools()...)
	}
	return append(tools, r.opts.AdditionalTools...)
}

func (r *Run) buildRequest(ctx context.Context) (core.RunRequest, error) {
	req := core.RunRequest{
		AssistantID: r.assistant.ID(),
		Stream:      true,
	}

	instructions, err := r.instructions(ctx)
	if err != nil {
		return core.RunRequest{}, err
	}
	req.Instructions = instructions

	// Tool overrides are only transmitted when the run changes the set.
	if r.opts.Tools != nil || len(r.opts.AdditionalTools) > 0 {
		req.Tools = tool.Definitions(r.tools())
	}

	return req, nil
}

func (r *Run) maxTurns() int {
	if r.opts.MaxTurns < 0 {
		return 0
	}
	return r.opts.MaxTurns
}

func (r *Run) runID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return ""
	}
	return r.current.ID
}

func (r *Run) status() core.RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return ""
	}
	return r.current.Status
}

func (r *Run) requiresAction() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current != nil && r.current.RequiresToolOutputs()
}

func (r *Run) setCurrent(run core.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = &run
	r.logger = r.logger.WithRun(run.ID)
}

// cancelRemote best-effort cancels the server-side run and refreshes the
// local snapshot.
func (r *Run) cancelRemote(ctx context.Context) {
	id := r.runID()
	if id == "" {
		return
	}
	if _, err := r.api.CancelRun(ctx, r.threadID, id); err != nil {
		r.logger.Warn("run.cancel.error", "error", err.Error())
		return
	}
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("run.refresh.error", "error", err.Error())
	}
}
