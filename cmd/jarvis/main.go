package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/jarvis/cmd/jarvis/commands"
	"github.com/slok/jarvis/internal/conventions"
	"github.com/slok/jarvis/internal/log"
	loglogrus "github.com/slok/jarvis/internal/log/logrus"
	"github.com/slok/jarvis/internal/utils/env"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	// Dotenv files are loaded before parsing so they can set JARVIS_* flag envars.
	loadedEnvFiles, err := env.LoadFiles(conventions.EnvFile)
	if err != nil {
		return fmt.Errorf("could not load env files: %w", err)
	}

	app := kingpin.New("jarvis", "Jarvis task execution client.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	chatCmd := commands.NewChatCommand(rootCmd, app)
	runCmd := commands.NewRunCommand(rootCmd, app)
	skillsCmd := commands.NewSkillsCommand(rootCmd, app)
	toolsCmd := commands.NewToolsCommand(rootCmd, app)
	historyCmd := commands.NewHistoryCommand(rootCmd, app)
	devBackendCmd := commands.NewDevBackendCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		chatCmd.Name():       chatCmd,
		runCmd.Name():        runCmd,
		skillsCmd.Name():     skillsCmd,
		toolsCmd.Name():      toolsCmd,
		historyCmd.Name():    historyCmd,
		devBackendCmd.Name(): devBackendCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Auto-suppress logging for commands that produce structured output (table/JSON)
	// or share the terminal with the user, to prevent log noise from mixing with
	// the output. Users can still enable logging with --debug.
	quietCommands := map[string]bool{
		"skills":  true,
		"tools":   true,
		"history": true,
		"chat":    true,
		"run":     true,
	}
	if quietCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(ctx, *rootCmd)
	for _, f := range loadedEnvFiles {
		rootCmd.Logger.Debugf("Env file %s loaded", f)
	}

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(ctx context.Context, config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
