package provider

import (
	"context"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// DefaultAnthropicMaxTokens is sent when no completion limit is configured;
// the Messages API requires one.
const DefaultAnthropicMaxTokens = 4096

type anthropicProvider struct {
	name      string
	client    anthropic.Client
	maxTokens int
}

func newAnthropic(info Info, opts Options) (Provider, error) {
	apiKey := opts.Keys[info.Name]
	if apiKey == "" {
		return nil, &MissingKeyError{Provider: info.Name, KeyName: info.KeyName}
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(opts.timeout()),
		option.WithMaxRetries(0),
	}
	if u := opts.baseURL(info); u != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(u))
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAnthropicMaxTokens
	}

	return &anthropicProvider{
		name:      info.Name,
		client:    anthropic.NewClient(reqOpts...),
		maxTokens: maxTokens,
	}, nil
}

func (p *anthropicProvider) Name() string { return p.name }

func (p *anthropicProvider) Stream(ctx context.Context, model string, messages []Message) (Stream, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(model, messages))
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, classify(p.name, err)
	}
	return &anthropicStream{provider: p.name, stream: stream}, nil
}

func (p *anthropicProvider) buildParams(model string, messages []Message) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(p.maxTokens),
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return params
}

// anthropicStream yields the text deltas of a Messages stream.
type anthropicStream struct {
	provider string
	stream   *ssestream.Stream[anthropic.MessageStreamEventUnion]
	done     bool
}

func (s *anthropicStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.stream.Next() {
		event := s.stream.Current()
		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				return event.Delta.Text, nil
			}
		case "message_stop":
			s.done = true
			return "", io.EOF
		}
	}
	s.done = true
	if err := s.stream.Err(); err != nil {
		return "", classify(s.provider, err)
	}
	return "", io.EOF
}

func (s *anthropicStream) Close() error {
	return s.stream.Close()
}
