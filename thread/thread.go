// Package thread wraps the server-side conversation thread: lazy creation,
// message append, full-history reads and a convenience constructor for runs
// against the thread. The server owns the message store; this package only
// mirrors the API surface with client-side ergonomics.
package thread

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/threadrun/assistant"
	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/logging"
	"github.com/hupe1980/threadrun/run"
)

// ErrDeleted is returned by operations on a thread after Delete.
var ErrDeleted = errors.New("thread has been deleted")

// Options configure a Thread.
type Options struct {
	// Metadata is attached to the server-side thread object on creation.
	Metadata map[string]string
	// Logger receives thread lifecycle logs.
	Logger logging.Logger
}

// Thread is the client-side handle of a conversation thread. The server-side
// object is created lazily on first use. Safe for concurrent use.
type Thread struct {
	api  core.API
	opts Options

	mu      sync.Mutex
	id      string
	deleted bool
}

// New creates a lazy thread handle; the server-side thread is created on
// first use.
func New(api core.API, optFns ...func(o *Options)) *Thread {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Thread{api: api, opts: opts}
}

// Use attaches to an existing server-side thread by ID.
func Use(api core.API, threadID string, optFns ...func(o *Options)) *Thread {
	t := New(api, optFns...)
	t.id = threadID
	return t
}

// ID returns the server-side thread ID, empty until created.
func (t *Thread) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// Ensure creates the server-side thread if it does not exist yet and returns
// its ID.
func (t *Thread) Ensure(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deleted {
		return "", ErrDeleted
	}
	if t.id != "" {
		return t.id, nil
	}

	remote, err := t.api.CreateThread(ctx, core.ThreadRequest{Metadata: t.opts.Metadata})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	t.id = remote.ID
	t.opts.Logger.Debug("thread.created", "thread_id", remote.ID)

	return t.id, nil
}

// Delete removes the server-side thread. The handle is unusable afterwards.
func (t *Thread) Delete(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deleted {
		return ErrDeleted
	}
	if t.id != "" {
		if err := t.api.DeleteThread(ctx, t.id); err != nil {
			return fmt.Errorf("delete thread %s: %w", t.id, err)
		}
		t.opts.Logger.Debug("thread.deleted", "thread_id", t.id)
	}
	t.deleted = true
	t.id = ""

	return nil
}

// AddMessage appends a user message to the thread, creating the thread if
// needed.
func (t *Thread) AddMessage(ctx context.Context, text string) (core.Message, error) {
	id, err := t.Ensure(ctx)
	if err != nil {
		return core.Message{}, err
	}

	msg, err := t.api.CreateMessage(ctx, id, core.MessageRequest{
		Role:    "user",
		Content: text,
	})
	if err != nil {
		return core.Message{}, fmt.Errorf("add message: %w", err)
	}

	return msg, nil
}

// Messages returns the full thread history in chronological order, draining
// pagination.
func (t *Thread) Messages(ctx context.Context) ([]core.Message, error) {
	id, err := t.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	var (
		msgs  []core.Message
		after string
	)
	for {
		page, err := t.api.ListMessages(ctx, id, core.ListOptions{
			Order: "asc",
			After: after,
		})
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		msgs = append(msgs, page.Data...)
		if !page.HasMore || page.LastID == "" {
			break
		}
		after = page.LastID
	}

	return msgs, nil
}

// Run constructs a run of the given assistant against this thread. The thread
// is created if needed; the run is not started.
func (t *Thread) Run(ctx context.Context, asst *assistant.Assistant, optFns ...func(o *run.Options)) (*run.Run, error) {
	id, err := t.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	return run.New(t.api, id, asst, optFns...), nil
}
