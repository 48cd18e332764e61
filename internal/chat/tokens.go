package chat

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const tokenEncoding = "cl100k_base"

type encodeFunc func(text string) int

// TokenCounter counts tokens with the cl100k_base encoding. The encoding is
// loaded on first use; when it cannot be loaded (it is fetched once and
// cached by tiktoken-go) counts fall back to a characters/4 estimate.
type TokenCounter struct {
	load   func() (encodeFunc, error)
	logger *slog.Logger

	once   sync.Once
	encode encodeFunc
}

// NewTokenCounter returns a counter backed by tiktoken-go.
func NewTokenCounter(logger *slog.Logger) *TokenCounter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TokenCounter{load: loadTiktoken, logger: logger}
}

func loadTiktoken() (encodeFunc, error) {
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, err
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	c.once.Do(func() {
		encode, err := c.load()
		if err != nil {
			c.logger.Warn("token encoding unavailable, estimating", "encoding", tokenEncoding, "error", err)
			encode = estimateTokens
		}
		c.encode = encode
	})
	return c.encode(text)
}

// CountTurns sums the tokens of every turn.
func (c *TokenCounter) CountTurns(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += c.Count(t.Content)
	}
	return total
}

func estimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
