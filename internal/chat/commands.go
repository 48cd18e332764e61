package chat

import "strings"

// Command is an in-chat command.
type Command int

const (
	CmdNone Command = iota
	CmdChangeModel
	CmdTokenCount
	CmdClearHistory
	CmdHelp
	CmdQuit
	CmdSave
	CmdHistory
)

var commandWords = []struct {
	words string
	cmd   Command
	args  argMode
}{
	{"change model", CmdChangeModel, argsAlways},
	{"token count", CmdTokenCount, argsNone},
	{"clear history", CmdClearHistory, argsNone},
	{"help", CmdHelp, argsNone},
	{"quit", CmdQuit, argsNone},
	{"exit", CmdQuit, argsNone},
	{"save", CmdSave, argsSlashed},
	{"history", CmdHistory, argsNone},
}

type argMode int

const (
	argsNone    argMode = iota
	argsAlways          // "change model gpt-4o"
	argsSlashed         // "/save notes.md"; a bare "save the file" is a message
)

// CommandNames lists the command words for prompt completion.
func CommandNames() []string {
	names := make([]string, len(commandWords))
	for i, c := range commandWords {
		names[i] = c.words
	}
	return names
}

// ParseCommand recognizes a command in a line of input. Matching ignores
// case and an optional leading slash. Commands that take no argument only
// match the whole line, so "help me with Go" is sent as a message.
func ParseCommand(line string) (Command, string) {
	line = strings.TrimSpace(line)
	trimmed := strings.TrimPrefix(line, "/")
	slashed := len(trimmed) < len(line)
	lower := strings.ToLower(trimmed)

	for _, c := range commandWords {
		if lower == c.words {
			return c.cmd, ""
		}
		takesArgs := c.args == argsAlways || (c.args == argsSlashed && slashed)
		if takesArgs && strings.HasPrefix(lower, c.words+" ") {
			return c.cmd, strings.TrimSpace(trimmed[len(c.words):])
		}
	}
	return CmdNone, ""
}
