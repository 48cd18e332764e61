// Package provider streams chat completions from hosted and local LLM
// providers behind one interface. OpenAI-compatible services and Ollama go
// through eino chat models, Anthropic through its SDK, and Claude Code
// through the claude-code-sdk-go CLI bridge.
package provider

import (
	"context"
	"log/slog"
	"time"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Stream is an open streaming response. Recv returns text fragments and
// io.EOF when the response is complete. Close releases the connection and
// may be called at any time.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider opens streaming chat completions.
type Provider interface {
	Name() string
	Stream(ctx context.Context, model string, messages []Message) (Stream, error)
}

// Options are the settings shared by all providers.
type Options struct {
	Keys      map[string]string // API key per provider name
	BaseURLs  map[string]string // endpoint overrides per provider name
	MaxTokens int               // completion limit; 0 keeps the provider default
	Timeout   time.Duration     // per-request timeout; 0 selects DefaultTimeout
	Logger    *slog.Logger
}

// DefaultTimeout bounds one request when Options.Timeout is unset.
const DefaultTimeout = 120 * time.Second

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (o Options) baseURL(info Info) string {
	if u := o.BaseURLs[info.Name]; u != "" {
		return u
	}
	return info.BaseURL
}
