package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/jarvis/internal/app/catalog"
	"github.com/slok/jarvis/internal/backend/rest"
	"github.com/slok/jarvis/internal/printer"
)

// CatalogCommand lists the backend skills or tools.
type CatalogCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
	kind    catalog.Kind

	format string
}

// NewSkillsCommand returns the skills command.
func NewSkillsCommand(rootCmd *RootCommand, app *kingpin.Application) *CatalogCommand {
	return newCatalogCommand(rootCmd, app, catalog.KindSkills, "List the skills available on the backend.")
}

// NewToolsCommand returns the tools command.
func NewToolsCommand(rootCmd *RootCommand, app *kingpin.Application) *CatalogCommand {
	return newCatalogCommand(rootCmd, app, catalog.KindTools, "List the tools available on the backend.")
}

func newCatalogCommand(rootCmd *RootCommand, app *kingpin.Application, kind catalog.Kind, help string) *CatalogCommand {
	c := &CatalogCommand{rootCmd: rootCmd, kind: kind}

	c.Cmd = app.Command(string(kind), help)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c CatalogCommand) Name() string { return c.Cmd.FullCommand() }

func (c CatalogCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.ClientConfig(ctx)
	if err != nil {
		return err
	}

	backendClient, err := rest.NewClient(rest.ClientConfig{BaseURL: cfg.ServerURL, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create backend client: %w", err)
	}

	svc, err := catalog.NewService(catalog.ServiceConfig{
		Backend: backendClient,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, catalog.Request{Kind: c.kind})
	if err != nil {
		return fmt.Errorf("could not list %s: %w", c.kind, err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if c.kind == catalog.KindSkills {
		err = p.PrintSkills(res.Skills)
	} else {
		err = p.PrintTools(res.Tools)
	}
	if err != nil {
		return fmt.Errorf("could not print %s: %w", c.kind, err)
	}

	return nil
}
