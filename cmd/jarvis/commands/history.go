package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/jarvis/internal/app/history"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/printer"
	"github.com/slok/jarvis/internal/storage/sqlite"
)

// HistoryCommand lists the local task history.
type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	limit         int
	outcomeFilter string
	taskID        string
	format        string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List the local task history, latest first.")
	c.Cmd.Flag("limit", "Max number of entries, 0 for all.").Short('n').Default("20").IntVar(&c.limit)
	c.Cmd.Flag("outcome", "Filter by outcome (answered, completed, waiting_approval, cancelled, failed).").StringVar(&c.outcomeFilter)
	c.Cmd.Flag("task-id", "Filter by task ID.").StringVar(&c.taskID)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Parse outcome filter if provided.
	var outcomeFilter *model.HistoryOutcome
	if c.outcomeFilter != "" {
		outcome := model.HistoryOutcome(strings.ToLower(c.outcomeFilter))
		switch outcome {
		case model.HistoryOutcomeAnswered, model.HistoryOutcomeCompleted, model.HistoryOutcomeWaitingApproval,
			model.HistoryOutcomeCancelled, model.HistoryOutcomeFailed:
			outcomeFilter = &outcome
		default:
			return fmt.Errorf("invalid outcome filter: %s", c.outcomeFilter)
		}
	}

	cfg, err := c.rootCmd.ClientConfig(ctx)
	if err != nil {
		return err
	}

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	svc, err := history.NewService(history.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	entries, err := svc.Run(ctx, history.Request{
		Limit:         c.limit,
		OutcomeFilter: outcomeFilter,
		TaskID:        c.taskID,
	})
	if err != nil {
		return fmt.Errorf("could not list history: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintHistory(entries); err != nil {
		return fmt.Errorf("could not print history: %w", err)
	}

	return nil
}
