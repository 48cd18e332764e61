// Package chat runs a conversation: it sends user turns to the selected
// provider, streams replies through the markdown renderer and handles the
// in-chat commands.
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/buker/lmci/internal/provider"
)

// Turn is one message of the conversation with the model that wrote it.
type Turn struct {
	provider.Message
	Provider string
	Model    string
	Partial  bool // the reply was cut short
}

// Session is the state of one conversation.
type Session struct {
	ID        string
	Provider  string
	Model     string
	CreatedAt time.Time
	Turns     []Turn
}

// NewSession starts an empty conversation with the given model.
func NewSession(providerName, model string) *Session {
	return &Session{
		ID:        newSessionID(),
		Provider:  providerName,
		Model:     model,
		CreatedAt: time.Now(),
	}
}

func newSessionID() string {
	u := uuid.New().String()
	return "sess_" + strings.ReplaceAll(u[:8], "-", "")
}

// Messages returns the history in the form providers accept.
func (s *Session) Messages() []provider.Message {
	out := make([]provider.Message, len(s.Turns))
	for i, t := range s.Turns {
		out[i] = t.Message
	}
	return out
}

func (s *Session) appendUser(content string) {
	s.Turns = append(s.Turns, Turn{
		Message: provider.Message{Role: provider.RoleUser, Content: content},
	})
}

func (s *Session) appendAssistant(content string, partial bool) {
	s.Turns = append(s.Turns, Turn{
		Message:  provider.Message{Role: provider.RoleAssistant, Content: content},
		Provider: s.Provider,
		Model:    s.Model,
		Partial:  partial,
	})
}

// dropLast removes the most recent turn.
func (s *Session) dropLast() {
	if len(s.Turns) > 0 {
		s.Turns = s.Turns[:len(s.Turns)-1]
	}
}

// Clear forgets the conversation history. The model selection is kept.
func (s *Session) Clear() {
	s.Turns = nil
}
