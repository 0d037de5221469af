package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/jarvis/internal/app/chat"
)

// ChatCommand runs an interactive chat with the backend.
type ChatCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewChatCommand returns the chat command.
func NewChatCommand(rootCmd *RootCommand, app *kingpin.Application) *ChatCommand {
	c := &ChatCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("chat", "Interactive chat, each line is a task (/help for commands).").Default()
	return c
}

func (c ChatCommand) Name() string { return c.Cmd.FullCommand() }

func (c ChatCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	stack, err := newClientStack(ctx, c.rootCmd)
	if err != nil {
		return err
	}

	svc, err := chat.NewService(chat.ServiceConfig{
		Session: stack.session,
		Input:   c.rootCmd.Stdin,
		Output:  c.rootCmd.Stdout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Jarvis chat, type %s for the available commands.\n", chat.CommandHelp)

	return stack.runWith(ctx, func(ctx context.Context) error {
		return svc.Run(ctx, chat.Request{})
	})
}
