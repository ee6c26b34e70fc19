package gatelist

import (
	"context"
	"strings"
)

// Command names as typed by users, without the leading slash.
const (
	CommandApply   = "apply"
	CommandApprove = "approve"
	CommandRevoke  = "revoke"
	CommandList    = "wl_list"
	CommandReload  = "reload"
	CommandHelp    = "help"
)

// Command is one parsed command line.
type Command struct {
	Name string
	Arg  string
}

// ParseCommand splits line into a command name and its argument.
// The argument is the rest of the line with surrounding space removed,
// so gamertags may contain inner spaces. ok is false if line is not a
// slash command.
func ParseCommand(line string) (cmd Command, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{}, false
	}
	line = line[1:]
	name, arg, _ := strings.Cut(line, " ")
	if name == "" {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}, true
}

// Dispatch parses line and runs the matching command.
func (e *Engine) Dispatch(ctx context.Context, c Caller, line string) Reply {
	cmd, ok := ParseCommand(line)
	if !ok {
		return Reply{Kind: KindUnknownCommand}
	}
	switch cmd.Name {
	case CommandHelp:
		return e.Help(c)
	case CommandReload:
		return e.Reload(ctx, c)
	case CommandApply, CommandApprove, CommandRevoke, CommandList:
	default:
		return Reply{Kind: KindUnknownCommand, Command: cmd.Name}
	}
	switch cmd.Name {
	case CommandApply:
		// An empty gamertag fails the channel or format check.
		return e.Submit(ctx, c, cmd.Arg)
	case CommandList:
		return e.List(ctx, c, cmd.Arg)
	}

	if cmd.Arg == "" {
		if r, ok := e.authorizeReview(c, cmd.Name); !ok {
			return r
		}
		return Reply{Kind: KindBadArgument, Command: cmd.Name}
	}
	if cmd.Name == CommandApprove {
		return e.Approve(ctx, c, cmd.Arg)
	}
	return e.Revoke(ctx, c, cmd.Arg)
}
