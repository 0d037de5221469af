package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/jarvis/internal/backend/fake"
	"github.com/slok/jarvis/internal/conventions"
)

// DevBackendCommand serves a fake backend for local development.
type DevBackendCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddress string
	stageDelay    time.Duration
}

// NewDevBackendCommand returns the dev-backend command.
func NewDevBackendCommand(rootCmd *RootCommand, app *kingpin.Application) *DevBackendCommand {
	c := &DevBackendCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("dev-backend", "Serve a fake backend for local development.").Hidden()
	c.Cmd.Flag("listen-address", "Address to listen on.").Default(conventions.DefaultDevBackendAddress).StringVar(&c.listenAddress)
	c.Cmd.Flag("stage-delay", "Pause between pushed stages.").Default("300ms").DurationVar(&c.stageDelay)

	return c
}

func (c DevBackendCommand) Name() string { return c.Cmd.FullCommand() }

func (c DevBackendCommand) Run(ctx context.Context) error {
	srv, err := fake.NewServer(fake.ServerConfig{
		StageDelay: c.stageDelay,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create fake backend: %w", err)
	}

	return srv.ListenAndServe(ctx, c.listenAddress)
}
