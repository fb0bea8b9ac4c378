// Package threadrun orchestrates runs of server-hosted assistants against
// conversation threads: it starts streamed runs, materializes messages and
// steps from the event stream, executes local tool functions when the server
// requires them, and resubmits their outputs until the run reaches a terminal
// state.
//
// The packages compose bottom-up — core wire types and the API contract,
// client as the production HTTP implementation, assistant/thread/run as the
// entities, runner for background execution — and this package ties them into
// a convenient entry point.
package threadrun

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/threadrun/assistant"
	"github.com/hupe1980/threadrun/client"
	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/handler"
	"github.com/hupe1980/threadrun/logging"
	"github.com/hupe1980/threadrun/run"
	"github.com/hupe1980/threadrun/thread"
)

// Options configure the top-level entry point.
type Options struct {
	// APIKey authenticates against the vendor API. Empty falls back to the
	// OPENAI_API_KEY environment variable.
	APIKey string
	// BaseURL overrides the API endpoint.
	BaseURL string
	// MaxRetries overrides the HTTP retry count.
	MaxRetries *int
	// Logger is passed down to all components.
	Logger logging.Logger
	// API overrides the backend, bypassing the HTTP client. Used in tests.
	API core.API
}

// ThreadRun is the top-level handle bundling an API backend with shared
// configuration.
type ThreadRun struct {
	api    core.API
	logger logging.Logger
}

// New creates a ThreadRun talking to the hosted API unless Options.API
// overrides the backend.
func New(optFns ...func(o *Options)) *ThreadRun {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	api := opts.API
	if api == nil {
		api = client.New(func(o *client.Options) {
			o.APIKey = opts.APIKey
			o.BaseURL = opts.BaseURL
			o.MaxRetries = opts.MaxRetries
			o.Logger = opts.Logger
		})
	}

	return &ThreadRun{api: api, logger: opts.Logger}
}

// API exposes the backend for direct use.
func (tr *ThreadRun) API() core.API { return tr.api }

// NewThread creates a lazy thread handle.
func (tr *ThreadRun) NewThread(optFns ...func(o *thread.Options)) *thread.Thread {
	fns := append([]func(o *thread.Options){func(o *thread.Options) {
		o.Logger = tr.logger
	}}, optFns...)
	return thread.New(tr.api, fns...)
}

// UseThread attaches to an existing thread by ID.
func (tr *ThreadRun) UseThread(threadID string, optFns ...func(o *thread.Options)) *thread.Thread {
	fns := append([]func(o *thread.Options){func(o *thread.Options) {
		o.Logger = tr.logger
	}}, optFns...)
	return thread.Use(tr.api, threadID, fns...)
}

// Run constructs a run of asst against an existing thread. The run is not
// started.
func (tr *ThreadRun) Run(threadID string, asst *assistant.Assistant, optFns ...func(o *run.Options)) *run.Run {
	fns := append([]func(o *run.Options){func(o *run.Options) {
		o.Logger = tr.logger
	}}, optFns...)
	return run.New(tr.api, threadID, asst, fns...)
}

// Say sends one user message to asst on a fresh ephemeral thread, executes
// the run to completion and returns the assistant's reply text. The thread is
// deleted afterwards.
func (tr *ThreadRun) Say(ctx context.Context, asst *assistant.Assistant, text string, optFns ...func(o *run.Options)) (string, error) {
	th := tr.NewThread()
	defer func() {
		if err := th.Delete(context.WithoutCancel(ctx)); err != nil {
			tr.logger.Warn("say.thread.delete.error", "error", err.Error())
		}
	}()

	if _, err := th.AddMessage(ctx, text); err != nil {
		return "", err
	}

	r, err := th.Run(ctx, asst, optFns...)
	if err != nil {
		return "", err
	}
	if err := r.Execute(ctx); err != nil {
		return "", err
	}

	if cur := r.Current(); cur != nil && cur.Status == core.RunStatusFailed {
		if cur.LastError != nil {
			return "", fmt.Errorf("run failed [%s]: %s", cur.LastError.Code, cur.LastError.Message)
		}
		return "", fmt.Errorf("run failed")
	}

	var parts []string
	for _, m := range r.Messages() {
		if m.Role == "assistant" {
			parts = append(parts, m.Text())
		}
	}
	return strings.Join(parts, "\n"), nil
}

// NewPrinterFactory is a convenience re-export for callers streaming to a
// terminal.
func NewPrinterFactory() handler.Factory {
	return func() handler.Handler { return handler.NewPrinter(nil) }
}
