package provider

import (
	"slices"
	"strings"
)

// Drivers select the client implementation of a provider.
const (
	DriverOpenAI     = "openai"
	DriverAnthropic  = "anthropic"
	DriverOllama     = "ollama"
	DriverClaudeCode = "claude-code"
)

// Info describes a known provider.
type Info struct {
	Name    string
	Driver  string
	KeyName string // config/env key holding the API key; empty when none is needed
	BaseURL string
	Models  []string
}

// NeedsKey reports whether the provider requires an API key.
func (i Info) NeedsKey() bool {
	return i.KeyName != ""
}

var catalog = []Info{
	{
		Name:    "groq",
		Driver:  DriverOpenAI,
		KeyName: "GROQ_API_KEY",
		BaseURL: "https://api.groq.com/openai/v1",
		Models:  []string{"llama-3.1-70b-versatile", "mixtral-8x7b-32768", "llama-3.1-8b-instant"},
	},
	{
		Name:    "openai",
		Driver:  DriverOpenAI,
		KeyName: "OPENAI_API_KEY",
		Models:  []string{"gpt-3.5-turbo", "gpt-4", "gpt-4o"},
	},
	{
		Name:    "anthropic",
		Driver:  DriverAnthropic,
		KeyName: "ANTHROPIC_API_KEY",
		Models:  []string{"claude-3-5-sonnet-latest", "claude-3-opus-20240229", "claude-3-sonnet-20240229"},
	},
	{
		Name:    "cerebras",
		Driver:  DriverOpenAI,
		KeyName: "CEREBRAS_API_KEY",
		BaseURL: "https://api.cerebras.ai/v1",
		Models:  []string{"llama3.1-8b"},
	},
	{
		Name:    "openrouter",
		Driver:  DriverOpenAI,
		KeyName: "OPENROUTER_API_KEY",
		BaseURL: "https://openrouter.ai/api/v1",
		Models:  []string{"openai/gpt-3.5-turbo", "openrouter/auto"},
	},
	{
		Name:    "ollama",
		Driver:  DriverOllama,
		BaseURL: "http://localhost:11434",
		Models:  []string{"llama3.1"},
	},
	{
		Name:   "claude-code",
		Driver: DriverClaudeCode,
		Models: []string{"sonnet", "opus"},
	},
}

// Catalog returns every known provider in display order.
func Catalog() []Info {
	out := make([]Info, len(catalog))
	for i, info := range catalog {
		info.Models = slices.Clone(info.Models)
		out[i] = info
	}
	return out
}

// Lookup finds a provider by name, ignoring case.
func Lookup(name string) (Info, bool) {
	for _, info := range catalog {
		if strings.EqualFold(info.Name, name) {
			return info, true
		}
	}
	return Info{}, false
}

// FindModel returns the provider that lists model, ignoring case, and the
// model name as listed.
func FindModel(model string) (Info, string, bool) {
	for _, info := range catalog {
		for _, m := range info.Models {
			if strings.EqualFold(m, model) {
				return info, m, true
			}
		}
	}
	return Info{}, "", false
}

// AllModels lists every catalog model, for completion.
func AllModels() []string {
	var models []string
	for _, info := range catalog {
		models = append(models, info.Models...)
	}
	return models
}
