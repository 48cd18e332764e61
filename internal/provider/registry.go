package provider

import (
	"fmt"
	"strings"
	"sync"
)

type factoryFunc func(info Info, opts Options) (Provider, error)

var defaultFactories = map[string]factoryFunc{
	DriverOpenAI:     newOpenAICompatible,
	DriverAnthropic:  newAnthropic,
	DriverOllama:     newOllama,
	DriverClaudeCode: newClaudeCode,
}

// Registry builds providers on first use and keeps them for the session.
type Registry struct {
	opts      Options
	factories map[string]factoryFunc

	mu        sync.Mutex
	providers map[string]Provider
}

// NewRegistry returns a Registry using opts for every provider.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:      opts,
		factories: defaultFactories,
		providers: make(map[string]Provider),
	}
}

// Get returns the named provider, creating it if needed.
func (r *Registry) Get(name string) (Provider, error) {
	info, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[info.Name]; ok {
		return p, nil
	}
	factory, ok := r.factories[info.Driver]
	if !ok {
		return nil, fmt.Errorf("provider %s: no driver %q", info.Name, info.Driver)
	}
	p, err := factory(info, r.opts)
	if err != nil {
		return nil, err
	}
	r.opts.logger().Debug("provider ready", "provider", info.Name, "driver", info.Driver)
	r.providers[info.Name] = p
	return p, nil
}

// Available reports whether the provider has what it needs to be used.
func (r *Registry) Available(name string) bool {
	info, ok := Lookup(name)
	if !ok {
		return false
	}
	return !info.NeedsKey() || r.opts.Keys[info.Name] != ""
}

// Resolve maps "model" or "provider:model" to a provider and model name.
// A bare model must be in the catalog; a qualified one may name any model
// the provider serves.
func Resolve(spec string) (Info, string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Info{}, "", fmt.Errorf("empty model name")
	}

	if name, model, ok := strings.Cut(spec, ":"); ok {
		if info, found := Lookup(name); found {
			if model == "" {
				return Info{}, "", fmt.Errorf("no model given for provider %s", info.Name)
			}
			return info, model, nil
		}
	}

	if info, model, ok := FindModel(spec); ok {
		return info, model, nil
	}
	return Info{}, "", fmt.Errorf("unknown model %q (use provider:model for models not in the list)", spec)
}
