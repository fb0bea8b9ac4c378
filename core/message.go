package core

import (
	"encoding/json"
	"strings"
)

// Message is the vendor thread message object.
type Message struct {
	ID          string            `json:"id"`
	Object      string            `json:"object"`
	CreatedAt   int64             `json:"created_at"`
	ThreadID    string            `json:"thread_id"`
	Status      string            `json:"status,omitempty"`
	Role        string            `json:"role"`
	Content     []MessageContent  `json:"content"`
	AssistantID string            `json:"assistant_id,omitempty"`
	RunID       string            `json:"run_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Text concatenates the text segments of the message content.
func (m Message) Text() string {
	var b strings.Builder
	for _, c := range m.Content {
		if c.Text != nil {
			b.WriteString(c.Text.Value)
		}
	}
	return b.String()
}

// Done reports whether the server will append no further content to this
// message.
func (m Message) Done() bool {
	return m.Status == "completed" || m.Status == "incomplete"
}

// MessageContent is one typed segment of message content. Non-text segment
// payloads are kept raw; the orchestration loop only materializes text.
type MessageContent struct {
	Type      string          `json:"type"`
	Text      *MessageText    `json:"text,omitempty"`
	ImageFile json.RawMessage `json:"image_file,omitempty"`
	ImageURL  json.RawMessage `json:"image_url,omitempty"`
}

// MessageText is the value (and annotations) of a text content segment.
type MessageText struct {
	Value       string            `json:"value"`
	Annotations []json.RawMessage `json:"annotations,omitempty"`
}

// MessageDelta is the streamed incremental update to a message.
type MessageDelta struct {
	ID     string           `json:"id"`
	Object string           `json:"object"`
	Delta  MessageDeltaBody `json:"delta"`
}

// Text concatenates the text fragments carried by the delta.
func (d MessageDelta) Text() string {
	var b strings.Builder
	for _, c := range d.Delta.Content {
		if c.Text != nil {
			b.WriteString(c.Text.Value)
		}
	}
	return b.String()
}

// MessageDeltaBody carries the changed fields of a message delta.
type MessageDeltaBody struct {
	Role    string                `json:"role,omitempty"`
	Content []MessageDeltaContent `json:"content,omitempty"`
}

// MessageDeltaContent is an indexed content fragment within a message delta.
type MessageDeltaContent struct {
	Index int          `json:"index"`
	Type  string       `json:"type"`
	Text  *MessageText `json:"text,omitempty"`
}
