package provider

import (
	"context"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// newOpenAICompatible serves OpenAI and the services that speak its chat
// completions API at another base URL (Groq, Cerebras, OpenRouter).
func newOpenAICompatible(info Info, opts Options) (Provider, error) {
	apiKey := opts.Keys[info.Name]
	if apiKey == "" {
		return nil, &MissingKeyError{Provider: info.Name, KeyName: info.KeyName}
	}
	baseURL := opts.baseURL(info)

	factory := func(ctx context.Context, name string) (model.BaseChatModel, error) {
		cfg := &einoopenai.ChatModelConfig{
			APIKey:  apiKey,
			Model:   name,
			BaseURL: baseURL,
			Timeout: opts.timeout(),
		}
		if opts.MaxTokens > 0 {
			maxTokens := opts.MaxTokens
			cfg.MaxCompletionTokens = &maxTokens
		}
		return einoopenai.NewChatModel(ctx, cfg)
	}
	return newEinoProvider(info.Name, factory), nil
}
