package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	claudecode "github.com/rokrokss/claude-code-sdk-go"
)

type stubProvider struct{ name string }

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Stream(ctx context.Context, model string, messages []Message) (Stream, error) {
	return nil, errors.New("not implemented")
}

func TestResolve(t *testing.T) {
	tests := []struct {
		spec         string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{"gpt-4o", "openai", "gpt-4o", false},
		{"GPT-4O", "openai", "gpt-4o", false},
		{"llama-3.1-70b-versatile", "groq", "llama-3.1-70b-versatile", false},
		{"openrouter/auto", "openrouter", "openrouter/auto", false},
		{"ollama:llama3.1:70b", "ollama", "llama3.1:70b", false},
		{"anthropic:claude-3-haiku-20240307", "anthropic", "claude-3-haiku-20240307", false},
		{"  sonnet ", "claude-code", "sonnet", false},
		{"nope-model", "", "", true},
		{"groq:", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			info, model, err := Resolve(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if info.Name != tt.wantProvider || model != tt.wantModel {
				t.Errorf("Resolve(%q) = %s, %s; want %s, %s", tt.spec, info.Name, model, tt.wantProvider, tt.wantModel)
			}
		})
	}
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := Catalog()
	c[0].Models[0] = "changed"

	if Catalog()[0].Models[0] == "changed" {
		t.Error("Catalog() exposes the package catalog")
	}
	if len(AllModels()) < len(c) {
		t.Errorf("AllModels() = %d models, want at least one per provider", len(AllModels()))
	}
}

func TestRegistry_GetCachesProviders(t *testing.T) {
	r := NewRegistry(Options{Keys: map[string]string{"groq": "k"}})
	built := 0
	r.factories = map[string]factoryFunc{
		DriverOpenAI: func(info Info, opts Options) (Provider, error) {
			built++
			return &stubProvider{name: info.Name}, nil
		},
	}

	for i := 0; i < 3; i++ {
		p, err := r.Get("Groq")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if p.Name() != "groq" {
			t.Errorf("Name() = %q", p.Name())
		}
	}
	if built != 1 {
		t.Errorf("factory called %d times, want 1", built)
	}
}

func TestRegistry_GetErrors(t *testing.T) {
	r := NewRegistry(Options{})

	if _, err := r.Get("nope"); err == nil {
		t.Error("Get(unknown) error = nil")
	}

	_, err := r.Get("openai")
	var missing *MissingKeyError
	if !errors.As(err, &missing) {
		t.Errorf("Get(openai) error = %v, want *MissingKeyError", err)
	}
}

func TestRegistry_Available(t *testing.T) {
	r := NewRegistry(Options{Keys: map[string]string{"openai": "k"}})

	tests := map[string]bool{
		"openai":      true,
		"groq":        false,
		"ollama":      true,
		"claude-code": true,
		"unknown":     false,
	}
	for name, want := range tests {
		if got := r.Available(name); got != want {
			t.Errorf("Available(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("stream: %w", context.DeadlineExceeded), KindTimeout},
		{"cli not found", claudecode.NewCLINotFoundError("", "missing"), KindCLINotFound},
		{"process", claudecode.NewProcessError("crashed", 1, "signal: killed"), KindProcess},
		{"connection", claudecode.NewConnectionError("failed", nil), KindConnection},
		{"net op", &net.OpError{Op: "dial", Err: errors.New("refused")}, KindConnection},
		{"unavailable", &UnavailableError{Provider: "ollama", Body: "no available server"}, KindUnavailable},
		{"auth text", errors.New("status code: 401, Invalid API Key"), KindAuth},
		{"rate text", errors.New("Too Many Requests"), KindRateLimit},
		{"context text", errors.New("maximum context length exceeded"), KindContextLength},
		{"model text", errors.New("The model `x` does not exist"), KindModelNotFound},
		{"server text", errors.New("status code: 503"), KindServer},
		{"other", errors.New("something odd"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("groq", tt.err)
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("classify() = %T, want *Error", err)
			}
			if perr.Kind != tt.want {
				t.Errorf("kind = %v, want %v", perr.Kind, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("classified error does not wrap the cause")
			}
		})
	}
}

func TestClassify_PassesThrough(t *testing.T) {
	if classify("groq", nil) != nil {
		t.Error("classify(nil) != nil")
	}
	if err := classify("groq", context.Canceled); err != context.Canceled {
		t.Errorf("classify(Canceled) = %v, want context.Canceled", err)
	}

	once := classify("groq", errors.New("429"))
	if twice := classify("openai", once); twice != once {
		t.Error("classify wrapped an already classified error")
	}
}
