package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// chatModelFactory builds an eino chat model bound to one model name.
type chatModelFactory func(ctx context.Context, model string) (model.BaseChatModel, error)

// einoProvider streams through eino chat models, building one per model
// name on first use.
type einoProvider struct {
	name    string
	factory chatModelFactory

	mu     sync.Mutex
	models map[string]model.BaseChatModel
}

func newEinoProvider(name string, factory chatModelFactory) *einoProvider {
	return &einoProvider{
		name:    name,
		factory: factory,
		models:  make(map[string]model.BaseChatModel),
	}
}

func (p *einoProvider) Name() string { return p.name }

func (p *einoProvider) chatModel(ctx context.Context, name string) (model.BaseChatModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cm, ok := p.models[name]; ok {
		return cm, nil
	}
	cm, err := p.factory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create %s chat model: %w", p.name, err)
	}
	p.models[name] = cm
	return cm, nil
}

func (p *einoProvider) Stream(ctx context.Context, name string, messages []Message) (Stream, error) {
	cm, err := p.chatModel(ctx, name)
	if err != nil {
		return nil, err
	}

	sr, err := cm.Stream(ctx, toSchemaMessages(messages))
	if err != nil {
		return nil, classify(p.name, err)
	}
	return &einoStream{provider: p.name, reader: sr}, nil
}

func toSchemaMessages(messages []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

// einoStream adapts a schema.StreamReader to Stream.
type einoStream struct {
	provider string
	reader   *schema.StreamReader[*schema.Message]
}

func (s *einoStream) Recv() (string, error) {
	for {
		msg, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", classify(s.provider, err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		return msg.Content, nil
	}
}

func (s *einoStream) Close() error {
	s.reader.Close()
	return nil
}
