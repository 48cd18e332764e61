package chat

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/buker/lmci/internal/provider"
)

type frontMatter struct {
	Session  string    `yaml:"session"`
	Provider string    `yaml:"provider"`
	Model    string    `yaml:"model"`
	Created  time.Time `yaml:"created"`
	Exported time.Time `yaml:"exported"`
	Messages int       `yaml:"messages"`
}

// Export writes the conversation as markdown with a YAML front matter
// header. Each turn becomes a second-level section named after its author.
func Export(w io.Writer, s *Session, now time.Time) error {
	header, err := yaml.Marshal(frontMatter{
		Session:  s.ID,
		Provider: s.Provider,
		Model:    s.Model,
		Created:  s.CreatedAt.UTC().Truncate(time.Second),
		Exported: now.UTC().Truncate(time.Second),
		Messages: len(s.Turns),
	})
	if err != nil {
		return fmt.Errorf("encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n")
	for _, t := range s.Turns {
		fmt.Fprintf(&buf, "\n## %s\n\n%s\n", author(t), t.Content)
		if t.Partial {
			buf.WriteString("\n_(reply interrupted)_\n")
		}
	}

	_, err = w.Write(buf.Bytes())
	return err
}

func author(t Turn) string {
	if t.Role == provider.RoleUser {
		return "You"
	}
	if t.Model != "" {
		return t.Model
	}
	return "Assistant"
}
