package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	claudecode "github.com/rokrokss/claude-code-sdk-go"
)

// Kind is the category of a provider failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindRateLimit
	KindContextLength
	KindModelNotFound
	KindConnection
	KindTimeout
	KindServer
	KindUnavailable
	KindCLINotFound
	KindProcess
)

var kindText = map[Kind]string{
	KindUnknown:       "request failed",
	KindAuth:          "authentication failed",
	KindRateLimit:     "rate limited",
	KindContextLength: "context too long",
	KindModelNotFound: "model not found",
	KindConnection:    "connection error",
	KindTimeout:       "request timed out",
	KindServer:        "server error",
	KindUnavailable:   "model server unavailable",
	KindCLINotFound:   "Claude Code CLI not found",
	KindProcess:       "Claude Code CLI subprocess failed",
}

func (k Kind) String() string {
	return kindText[k]
}

// Error is a classified provider failure.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Hint returns a suggestion for the user, or "" when there is none.
func (e *Error) Hint() string {
	switch e.Kind {
	case KindAuth:
		if e.Provider == "claude-code" {
			return "Run 'claude login' to authenticate."
		}
		return "Check the API key with 'lmci setup'."
	case KindRateLimit:
		return "Wait a moment and try again."
	case KindContextLength:
		return "Use 'clear history' to start a shorter conversation."
	case KindModelNotFound:
		return "Run 'lmci models' to list known models."
	case KindUnavailable:
		return "Is the server running? Check the base URL in the config."
	case KindCLINotFound:
		return "Install with: npm install -g @anthropic-ai/claude-code"
	case KindServer:
		return "Please try again later."
	}
	return ""
}

// MissingKeyError reports a provider selected without its API key.
type MissingKeyError struct {
	Provider string
	KeyName  string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("No API key available for %s. Set %s or run 'lmci setup'.", e.Provider, e.KeyName)
}

// classify wraps err in an Error. Cancellation passes through unchanged so
// callers can tell an interrupted turn from a failed one.
func classify(provider string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Provider: provider, Kind: kindOf(err), Err: err}
}

func kindOf(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return KindUnavailable
	}

	var cliNotFound *claudecode.CLINotFoundError
	if errors.As(err, &cliNotFound) {
		return KindCLINotFound
	}
	var processErr *claudecode.ProcessError
	if errors.As(err, &processErr) {
		return KindProcess
	}
	var connErr *claudecode.ConnectionError
	if errors.As(err, &connErr) {
		return KindConnection
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if k := kindOfStatus(apiErr.StatusCode); k != KindUnknown {
			return k
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindConnection
	}

	return kindOfMessage(err.Error())
}

func kindOfStatus(code int) Kind {
	switch {
	case code == 401 || code == 403:
		return KindAuth
	case code == 404:
		return KindModelNotFound
	case code == 408:
		return KindTimeout
	case code == 413:
		return KindContextLength
	case code == 429:
		return KindRateLimit
	case code >= 500:
		return KindServer
	}
	return KindUnknown
}

// kindOfMessage covers SDKs that only report failures as text.
func kindOfMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	switch {
	case containsAny(msg, "401", "403", "unauthorized", "invalid api key", "api key", "forbidden", "authentication"):
		return KindAuth
	case containsAny(msg, "429", "rate limit", "quota", "too many requests"):
		return KindRateLimit
	case containsAny(msg, "context length", "too many tokens", "max tokens", "token limit"):
		return KindContextLength
	case containsAny(msg, "model not found", "404", "not found", "does not exist"):
		return KindModelNotFound
	case containsAny(msg, "500", "502", "503", "internal server error", "overloaded"):
		return KindServer
	case containsAny(msg, "connection", "eof", "dial", "refused"):
		return KindConnection
	case containsAny(msg, "timeout", "timed out"):
		return KindTimeout
	}
	return KindUnknown
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
