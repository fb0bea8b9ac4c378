// Package client implements core.API against the vendor's hosted Assistants
// HTTP surface. It rides on the official Go SDK's request layer (auth,
// retries, SSE decoding) and keeps the wire types in core so the rest of the
// module never sees SDK types.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/logging"
)

// betaHeader opts requests into the Assistants v2 API surface.
const betaHeader = "assistants=v2"

// caller is the slice of the SDK client we consume. Narrowed for testability.
type caller interface {
	Get(ctx context.Context, path string, params any, res any, opts ...option.RequestOption) error
	Post(ctx context.Context, path string, params any, res any, opts ...option.RequestOption) error
	Delete(ctx context.Context, path string, params any, res any, opts ...option.RequestOption) error
}

// Options configure the Client.
type Options struct {
	// APIKey authenticates requests. Empty falls back to the SDK's
	// environment-based default (OPENAI_API_KEY).
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for proxies or compatible
	// servers.
	BaseURL string
	// MaxRetries overrides the SDK's retry count for idempotent failures.
	MaxRetries *int
	// Logger receives request-level logs.
	Logger logging.Logger
}

// Client is the production core.API implementation. Safe for concurrent use.
type Client struct {
	caller caller
	logger logging.Logger
}

var _ core.API = (*Client)(nil)

// New creates a Client.
func New(optFns ...func(o *Options)) *Client {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	reqOpts := []option.RequestOption{
		option.WithHeader("OpenAI-Beta", betaHeader),
	}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.MaxRetries != nil {
		reqOpts = append(reqOpts, option.WithMaxRetries(*opts.MaxRetries))
	}

	sdk := openai.NewClient(reqOpts...)

	return &Client{caller: &sdk, logger: opts.Logger}
}

// CreateAssistant implements core.API.
func (c *Client) CreateAssistant(ctx context.Context, req core.AssistantRequest) (core.Assistant, error) {
	var res core.Assistant
	if err := c.caller.Post(ctx, "assistants", req, &res); err != nil {
		return core.Assistant{}, fmt.Errorf("create assistant: %w", err)
	}
	c.logger.Debug("client.assistant.created", "assistant_id", res.ID)
	return res, nil
}

// RetrieveAssistant implements core.API.
func (c *Client) RetrieveAssistant(ctx context.Context, assistantID string) (core.Assistant, error) {
	var res core.Assistant
	path := fmt.Sprintf("assistants/%s", assistantID)
	if err := c.caller.Get(ctx, path, nil, &res); err != nil {
		return core.Assistant{}, fmt.Errorf("retrieve assistant: %w", err)
	}
	return res, nil
}

// DeleteAssistant implements core.API.
func (c *Client) DeleteAssistant(ctx context.Context, assistantID string) error {
	path := fmt.Sprintf("assistants/%s", assistantID)
	if err := c.caller.Delete(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("delete assistant: %w", err)
	}
	c.logger.Debug("client.assistant.deleted", "assistant_id", assistantID)
	return nil
}

// CreateThread implements core.API.
func (c *Client) CreateThread(ctx context.Context, req core.ThreadRequest) (core.Thread, error) {
	var res core.Thread
	if err := c.caller.Post(ctx, "threads", req, &res); err != nil {
		return core.Thread{}, fmt.Errorf("create thread: %w", err)
	}
	c.logger.Debug("client.thread.created", "thread_id", res.ID)
	return res, nil
}

// DeleteThread implements core.API.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	path := fmt.Sprintf("threads/%s", threadID)
	if err := c.caller.Delete(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	c.logger.Debug("client.thread.deleted", "thread_id", threadID)
	return nil
}

// CreateMessage implements core.API.
func (c *Client) CreateMessage(ctx context.Context, threadID string, req core.MessageRequest) (core.Message, error) {
	var res core.Message
	path := fmt.Sprintf("threads/%s/messages", threadID)
	if err := c.caller.Post(ctx, path, req, &res); err != nil {
		return core.Message{}, fmt.Errorf("create message: %w", err)
	}
	return res, nil
}

// ListMessages implements core.API.
func (c *Client) ListMessages(ctx context.Context, threadID string, opts core.ListOptions) (core.MessageList, error) {
	var res core.MessageList
	path := listPath(fmt.Sprintf("threads/%s/messages", threadID), opts)
	if err := c.caller.Get(ctx, path, nil, &res); err != nil {
		return core.MessageList{}, fmt.Errorf("list messages: %w", err)
	}
	return res, nil
}

// CreateRunStream implements core.API.
func (c *Client) CreateRunStream(ctx context.Context, threadID string, req core.RunRequest) (core.Stream, error) {
	req.Stream = true
	path := fmt.Sprintf("threads/%s/runs", threadID)
	c.logger.Debug("client.run.create", "thread_id", threadID, "assistant_id", req.AssistantID)
	return c.stream(ctx, path, req)
}

// SubmitToolOutputsStream implements core.API.
func (c *Client) SubmitToolOutputsStream(ctx context.Context, threadID, runID string, req core.SubmitToolOutputsRequest) (core.Stream, error) {
	req.Stream = true
	path := fmt.Sprintf("threads/%s/runs/%s/submit_tool_outputs", threadID, runID)
	c.logger.Debug("client.run.submit_tool_outputs", "thread_id", threadID, "run_id", runID, "outputs", len(req.ToolOutputs))
	return c.stream(ctx, path, req)
}

// RetrieveRun implements core.API.
func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (core.Run, error) {
	var res core.Run
	path := fmt.Sprintf("threads/%s/runs/%s", threadID, runID)
	if err := c.caller.Get(ctx, path, nil, &res); err != nil {
		return core.Run{}, fmt.Errorf("retrieve run: %w", err)
	}
	return res, nil
}

// CancelRun implements core.API.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) (core.Run, error) {
	var res core.Run
	path := fmt.Sprintf("threads/%s/runs/%s/cancel", threadID, runID)
	if err := c.caller.Post(ctx, path, nil, &res); err != nil {
		return core.Run{}, fmt.Errorf("cancel run: %w", err)
	}
	c.logger.Debug("client.run.cancelled", "thread_id", threadID, "run_id", runID)
	return res, nil
}

// ListRunSteps implements core.API.
func (c *Client) ListRunSteps(ctx context.Context, threadID, runID string, opts core.ListOptions) (core.RunStepList, error) {
	var res core.RunStepList
	path := listPath(fmt.Sprintf("threads/%s/runs/%s/steps", threadID, runID), opts)
	if err := c.caller.Get(ctx, path, nil, &res); err != nil {
		return core.RunStepList{}, fmt.Errorf("list run steps: %w", err)
	}
	return res, nil
}

// stream issues a POST and hands the raw SSE response to the SDK's decoder.
func (c *Client) stream(ctx context.Context, path string, body any) (core.Stream, error) {
	var raw *http.Response
	if err := c.caller.Post(ctx, path, body, &raw); err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}
	return ssestream.NewStream[core.StreamEvent](ssestream.NewDecoder(raw), nil), nil
}

// listPath appends pagination parameters to a list endpoint path.
func listPath(base string, opts core.ListOptions) string {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Order != "" {
		q.Set("order", opts.Order)
	}
	if opts.After != "" {
		q.Set("after", opts.After)
	}
	if opts.Before != "" {
		q.Set("before", opts.Before)
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}
