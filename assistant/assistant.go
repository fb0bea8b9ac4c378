// Package assistant models the assistant configuration a run executes under:
// model, instructions (static or dynamic), local tools and lifecycle hooks.
// An Assistant may be bound to an existing server-side assistant by ID, or
// remain ephemeral, in which case the run loop creates it remotely for the
// duration of a run and deletes it afterwards.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/logging"
	"github.com/hupe1980/threadrun/tool"
)

// ErrNotCreated is returned by operations that need a server-side assistant ID.
var ErrNotCreated = errors.New("assistant has not been created yet")

// Hook is invoked around a run's execution.
type Hook func(ctx context.Context) error

// Options configure an Assistant.
type Options struct {
	// Name is the display name registered server-side.
	Name string
	// Description is the human-readable purpose of the assistant.
	Description string
	// Instructions is the system prompt, static or dynamically provided.
	Instructions Instruction
	// Tools are the local functions the assistant may call.
	Tools []tool.Tool
	// Metadata is attached to the server-side assistant object.
	Metadata map[string]string
	// Temperature overrides the model sampling temperature when set.
	Temperature *float64
	// PreRun runs before a run starts streaming.
	PreRun Hook
	// PostRun runs after a run reached a terminal state without error.
	PostRun Hook
	// Logger receives assistant lifecycle logs.
	Logger logging.Logger
}

// Assistant is the client-side assistant entity. Safe for concurrent use.
type Assistant struct {
	mu   sync.RWMutex
	id   string
	opts Options

	model string
	// bound marks an assistant attached to a pre-existing remote object; it
	// is never deleted by Release.
	bound bool
}

// New creates an unbound (ephemeral) assistant for the given model.
func New(model string, optFns ...func(o *Options)) *Assistant {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Assistant{model: model, opts: opts}
}

// Load binds to an existing server-side assistant, pulling its configuration.
// Local tools still have to be registered with RegisterTools, since the
// server only stores their schemas.
func Load(ctx context.Context, api core.API, assistantID string, optFns ...func(o *Options)) (*Assistant, error) {
	remote, err := api.RetrieveAssistant(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("retrieve assistant %s: %w", assistantID, err)
	}

	a := New(remote.Model, optFns...)
	a.id = remote.ID
	a.bound = true
	if a.opts.Name == "" {
		a.opts.Name = remote.Name
	}
	if a.opts.Description == "" {
		a.opts.Description = remote.Description
	}
	if a.opts.Instructions.IsZero() {
		a.opts.Instructions = NewInstructionFromText(remote.Instructions)
	}
	return a, nil
}

// ID returns the server-side assistant ID, empty until created or loaded.
func (a *Assistant) ID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.id
}

// Name returns the display name.
func (a *Assistant) Name() string { return a.opts.Name }

// Model returns the model identifier.
func (a *Assistant) Model() string { return a.model }

// Instructions resolves the assistant's instruction text.
func (a *Assistant) Instructions(ctx context.Context) (string, error) {
	return a.opts.Instructions.Resolve(ctx)
}

// Tools returns a copy of the registered local tools.
func (a *Assistant) Tools() []tool.Tool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	tools := make([]tool.Tool, len(a.opts.Tools))
	copy(tools, a.opts.Tools)
	return tools
}

// RegisterTools appends local tools.
func (a *Assistant) RegisterTools(tools ...tool.Tool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opts.Tools = append(a.opts.Tools, tools...)
}

// Definitions returns the vendor tool definitions of the registered tools.
func (a *Assistant) Definitions() []core.ToolDefinition {
	return tool.Definitions(a.Tools())
}

// Create registers the assistant server-side and records the assigned ID.
func (a *Assistant) Create(ctx context.Context, api core.API) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.id != "" {
		return fmt.Errorf("assistant %s already created", a.id)
	}

	instructions, err := a.opts.Instructions.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve instructions: %w", err)
	}

	remote, err := api.CreateAssistant(ctx, core.AssistantRequest{
		Model:        a.model,
		Name:         a.opts.Name,
		Description:  a.opts.Description,
		Instructions: instructions,
		Tools:        tool.Definitions(a.opts.Tools),
		Metadata:     a.opts.Metadata,
		Temperature:  a.opts.Temperature,
	})
	if err != nil {
		return fmt.Errorf("create assistant: %w", err)
	}

	a.id = remote.ID
	a.opts.Logger.Debug("assistant.created", "assistant_id", remote.ID, "model", a.model)

	return nil
}

// Delete removes the server-side assistant and clears the local binding.
func (a *Assistant) Delete(ctx context.Context, api core.API) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.id == "" {
		return ErrNotCreated
	}
	if err := api.DeleteAssistant(ctx, a.id); err != nil {
		return fmt.Errorf("delete assistant %s: %w", a.id, err)
	}

	a.opts.Logger.Debug("assistant.deleted", "assistant_id", a.id)
	a.id = ""
	a.bound = false

	return nil
}

// Acquire makes the assistant available server-side for the duration of a
// run. Ephemeral assistants (no ID yet) are created remotely and torn down
// again by the returned release func; bound or already created assistants
// release to a no-op.
func (a *Assistant) Acquire(ctx context.Context, api core.API) (func(context.Context) error, error) {
	if a.ID() != "" {
		return func(context.Context) error { return nil }, nil
	}
	if err := a.Create(ctx, api); err != nil {
		return nil, err
	}
	return func(rctx context.Context) error {
		return a.Delete(rctx, api)
	}, nil
}

// PreRun invokes the pre-run hook if configured.
func (a *Assistant) PreRun(ctx context.Context) error {
	if a.opts.PreRun == nil {
		return nil
	}
	return a.opts.PreRun(ctx)
}

// PostRun invokes the post-run hook if configured.
func (a *Assistant) PostRun(ctx context.Context) error {
	if a.opts.PostRun == nil {
		return nil
	}
	return a.opts.PostRun(ctx)
}
