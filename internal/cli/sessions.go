package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"

	"github.com/buker/lmci/internal/chat"
	"github.com/buker/lmci/internal/config"
	"github.com/buker/lmci/internal/provider"
	"github.com/buker/lmci/internal/store"
	"github.com/buker/lmci/internal/terminal"
	"github.com/buker/lmci/internal/tui/shared"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse recorded conversations",
	Long:  `List, show and export conversations recorded in ~/.llm_cli/sessions.db.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withStore(func(st *store.Store) error {
			list, err := st.Sessions(commandContext(cmd), limit)
			if err != nil {
				return err
			}
			printSessions(cmd.OutOrStdout(), list)
			return nil
		})
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a conversation with rendered replies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		term, err := newTerminal(cfg, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return withStore(func(st *store.Store) error {
			sess, msgs, err := loadSession(cmd, st, args[0])
			if err != nil {
				return err
			}
			return showSession(term, sess, msgs)
		})
	},
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a conversation as markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("output")
		return withStore(func(st *store.Store) error {
			sess, msgs, err := loadSession(cmd, st, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				defer f.Close()
				w = f
			}
			return chat.Export(w, chatSession(sess, msgs), time.Now())
		})
	},
}

func init() {
	sessionsListCmd.Flags().IntP("limit", "n", 20, "Number of conversations to list (0 for all)")
	sessionsExportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
}

func withStore(fn func(st *store.Store) error) error {
	st, err := store.Open(storePath(config.Get()))
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func loadSession(cmd *cobra.Command, st *store.Store, id string) (store.Session, []store.Message, error) {
	ctx := commandContext(cmd)
	sess, err := st.FindSession(ctx, id)
	if err != nil {
		return store.Session{}, nil, err
	}
	msgs, err := st.Messages(ctx, sess.ID)
	if err != nil {
		return store.Session{}, nil, err
	}
	return sess, msgs, nil
}

func printSessions(w io.Writer, list []store.Session) {
	if len(list) == 0 {
		fmt.Fprintln(w, shared.DimStyle.Render("No recorded conversations."))
		return
	}
	for _, s := range list {
		title := truncate.StringWithTail(strings.Join(strings.Fields(s.Title), " "), 40, "…")
		fmt.Fprintf(w, "%-13s  %s  %-24s %3d  %s\n",
			s.ID, s.UpdatedAt.Format("2006-01-02 15:04"), s.Model, s.Messages, title)
	}
}

func showSession(term *terminal.Terminal, sess store.Session, msgs []store.Message) error {
	fmt.Fprintln(term, shared.InfoStyle.Render(fmt.Sprintf("%s  %s (Provider: %s)  %s",
		sess.ID, sess.Model, sess.Provider, sess.CreatedAt.Format("2006-01-02 15:04"))))
	for _, m := range msgs {
		fmt.Fprintf(term, "\n%s\n", shared.RenderDivider(shared.DividerWidth))
		if m.Role != string(provider.RoleAssistant) {
			fmt.Fprintf(term, "%s %s\n", shared.PromptStyle.Render("You:"), m.Content)
			continue
		}
		fmt.Fprintf(term, "%s\n", shared.ModelStyle.Render(m.Model+":"))
		if err := term.RenderMarkdown(m.Content); err != nil {
			return err
		}
		if m.Partial {
			fmt.Fprintln(term, shared.DimStyle.Render("[interrupted]"))
		}
	}
	term.EnsureNewline()
	return nil
}

// chatSession rebuilds a conversation from its stored form.
func chatSession(sess store.Session, msgs []store.Message) *chat.Session {
	out := &chat.Session{
		ID:        sess.ID,
		Provider:  sess.Provider,
		Model:     sess.Model,
		CreatedAt: sess.CreatedAt,
	}
	for _, m := range msgs {
		out.Turns = append(out.Turns, chat.Turn{
			Message:  provider.Message{Role: provider.Role(m.Role), Content: m.Content},
			Provider: m.Provider,
			Model:    m.Model,
			Partial:  m.Partial,
		})
	}
	return out
}
