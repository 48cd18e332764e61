package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"
)

// UnavailableError reports a model server that could not be reached or
// answered with something other than a model response.
type UnavailableError struct {
	Provider string
	Body     string
	Cause    error
}

func (e *UnavailableError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Cause)
	case e.Body != "":
		return fmt.Sprintf("%s unavailable: %s", e.Provider, e.Body)
	default:
		return e.Provider + " unavailable"
	}
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

func newOllama(info Info, opts Options) (Provider, error) {
	baseURL := opts.baseURL(info)
	timeout := opts.timeout()

	factory := func(ctx context.Context, name string) (model.BaseChatModel, error) {
		cfg := &einoollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   name,
			Timeout: timeout,
			HTTPClient: &http.Client{
				Timeout:   timeout,
				Transport: &ollamaTransport{inner: http.DefaultTransport, provider: info.Name},
			},
		}
		if opts.MaxTokens > 0 {
			cfg.Options = &einoollama.Options{NumPredict: opts.MaxTokens}
		}
		return einoollama.NewChatModel(ctx, cfg)
	}
	return newEinoProvider(info.Name, factory), nil
}

// ollamaTransport turns refused connections, error statuses and non-JSON
// bodies (a proxy answering "no available server") into UnavailableError.
type ollamaTransport struct {
	inner    http.RoundTripper
	provider string
}

func (t *ollamaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return nil, &UnavailableError{Provider: t.provider, Cause: err}
	}

	if resp.StatusCode >= 400 {
		return nil, t.reject(resp)
	}

	// Streaming replies are application/x-ndjson, the rest application/json.
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "json") {
		return nil, t.reject(resp)
	}
	return resp, nil
}

func (t *ollamaTransport) reject(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	return &UnavailableError{
		Provider: t.provider,
		Body:     strings.TrimSpace(string(body)),
	}
}
