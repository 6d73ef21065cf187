package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNoMessages          = errors.New("messages array is required")
	ErrInvalidMessage      = errors.New("invalid message")
	ErrUpstreamUnavailable = errors.New("chat upstream is not configured")
)

// MessagePart is one piece of a client-side chat message. Only text parts
// reach the model.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ChatMessage accepts both the flat {role, content} shape and the client's
// {role, parts} shape.
type ChatMessage struct {
	Role    string        `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []MessagePart `json:"parts,omitempty"`
}

// ModelMessage is what the upstream model receives.
type ModelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UpstreamRequest is the body posted to the chat upstream.
type UpstreamRequest struct {
	Messages       []ModelMessage `json:"messages"`
	TelegramUserID *int64         `json:"telegramUserId,omitempty"`
}

// UpstreamError reports a non-2xx upstream answer.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat upstream returned %d: %s", e.Status, e.Body)
}

// ToModelMessages flattens client messages, joining text parts when the
// flat content is empty.
func ToModelMessages(msgs []ChatMessage) ([]ModelMessage, error) {
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}
	out := make([]ModelMessage, 0, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case "user", "assistant", "system":
		default:
			return nil, fmt.Errorf("%w: message %d has role %q", ErrInvalidMessage, i, m.Role)
		}
		content := m.Content
		if content == "" {
			var b strings.Builder
			for _, p := range m.Parts {
				if p.Type == "text" {
					b.WriteString(p.Text)
				}
			}
			content = b.String()
		}
		out = append(out, ModelMessage{Role: m.Role, Content: content})
	}
	return out, nil
}

// ChatRelay forwards conversations to the model service and hands back its
// streaming response.
type ChatRelay struct {
	url    string
	client *http.Client
}

func NewChatRelay(url string, timeout time.Duration) *ChatRelay {
	return &ChatRelay{url: url, client: &http.Client{Timeout: timeout}}
}

func (r *ChatRelay) Configured() bool {
	return r != nil && r.url != ""
}

// Open posts the conversation upstream. On success the caller owns the
// response body.
func (r *ChatRelay) Open(ctx context.Context, req UpstreamRequest) (*http.Response, error) {
	if !r.Configured() {
		return nil, ErrUpstreamUnavailable
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat upstream: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return resp, nil
}
