package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	claudecode "github.com/rokrokss/claude-code-sdk-go"
)

// connectFunc runs fn with a connected Claude Code client for model.
type connectFunc func(ctx context.Context, model string, fn func(client claudecode.Client) error) error

func connectCLI(ctx context.Context, model string, fn func(client claudecode.Client) error) error {
	return claudecode.WithClient(ctx, fn, claudecode.WithModel(model))
}

// claudeCodeProvider talks to Claude through the local Claude Code CLI.
// Authentication is handled by the CLI ('claude login').
type claudeCodeProvider struct {
	name    string
	connect connectFunc
	logger  *slog.Logger
}

func newClaudeCode(info Info, opts Options) (Provider, error) {
	return &claudeCodeProvider{
		name:    info.Name,
		connect: connectCLI,
		logger:  opts.logger(),
	}, nil
}

func (p *claudeCodeProvider) Name() string { return p.name }

// Stream starts one CLI session per turn. The CLI keeps no history between
// sessions, so earlier turns are sent as a transcript in the prompt.
func (p *claudeCodeProvider) Stream(ctx context.Context, model string, messages []Message) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &chanStream{
		provider: p.name,
		ch:       make(chan string, 16),
		cancel:   cancel,
	}
	prompt := transcriptPrompt(messages)

	go func() {
		err := p.connect(ctx, model, func(client claudecode.Client) error {
			return p.relay(ctx, client, prompt, s.ch)
		})
		s.finish(err)
	}()
	return s, nil
}

// relay sends the prompt and forwards assistant text until the result
// message arrives or the channel closes.
func (p *claudeCodeProvider) relay(ctx context.Context, client claudecode.Client, prompt string, out chan<- string) error {
	p.logger.Debug("claude-code query", "prompt_len", len(prompt))
	if err := client.Query(ctx, prompt); err != nil {
		return fmt.Errorf("send query: %w", err)
	}

	for msg := range client.ReceiveMessages(ctx) {
		switch m := msg.(type) {
		case *claudecode.AssistantMessage:
			for _, block := range m.Content {
				text, ok := block.(*claudecode.TextBlock)
				if !ok || text.Text == "" {
					continue
				}
				select {
				case out <- text.Text:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		case *claudecode.ResultMessage:
			if m.IsError {
				return errors.New("API error in result message")
			}
			return nil
		default:
			p.logger.Debug("claude-code message ignored", "type", fmt.Sprintf("%T", msg))
		}
	}
	return ctx.Err()
}

func transcriptPrompt(messages []Message) string {
	var system []string
	var turns []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}

	if len(turns) == 1 && len(system) == 0 {
		return turns[0].Content
	}

	var b strings.Builder
	for _, s := range system {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	if len(turns) > 1 {
		b.WriteString("Conversation so far:\n\n")
		for _, m := range turns[:len(turns)-1] {
			fmt.Fprintf(&b, "%s: %s\n\n", roleLabel(m.Role), m.Content)
		}
		b.WriteString("Reply to the last user message:\n\n")
	}
	if len(turns) > 0 {
		b.WriteString(turns[len(turns)-1].Content)
	}
	return b.String()
}

func roleLabel(r Role) string {
	if r == RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// chanStream is a Stream fed by a producer goroutine.
type chanStream struct {
	provider string
	ch       chan string
	cancel   context.CancelFunc

	mu  sync.Mutex
	err error
}

// finish records the producer's error and closes the channel.
func (s *chanStream) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.ch)
}

func (s *chanStream) Recv() (string, error) {
	text, ok := <-s.ch
	if ok {
		return text, nil
	}
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return "", classify(s.provider, err)
	}
	return "", io.EOF
}

func (s *chanStream) Close() error {
	s.cancel()
	for range s.ch {
	}
	return nil
}
