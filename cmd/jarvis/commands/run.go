package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	apprun "github.com/slok/jarvis/internal/app/run"
	"github.com/slok/jarvis/internal/model"
)

const (
	decisionAsk     = "ask"
	decisionApprove = "approve"
	decisionReject  = "reject"
)

// RunCommand submits a single task and waits for its result.
type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	description    []string
	decision       string
	connectTimeout time.Duration
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Submit a task and wait for its result.")
	c.Cmd.Arg("description", "Task description.").Required().StringsVar(&c.description)
	c.Cmd.Flag("decision", "How to decide on risky steps (ask, approve, reject).").Default(decisionAsk).EnumVar(&c.decision, decisionAsk, decisionApprove, decisionReject)
	c.Cmd.Flag("connect-timeout", "Max wait for the push channel before submitting.").Default("5s").DurationVar(&c.connectTimeout)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	stack, err := newClientStack(ctx, c.rootCmd)
	if err != nil {
		return err
	}

	svc, err := apprun.NewService(apprun.ServiceConfig{
		Session: stack.session,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	var decider apprun.Decider
	switch c.decision {
	case decisionApprove:
		decider = apprun.AlwaysApprove
	case decisionReject:
		decider = apprun.AlwaysReject
	default:
		decider = askDecider(c.rootCmd.Stdin, c.rootCmd.Stdout)
	}

	description := strings.Join(c.description, " ")

	return stack.runWith(ctx, func(ctx context.Context) error {
		if !stack.waitConnected(ctx, c.connectTimeout) {
			logger.Warningf("Push channel not connected, the progress will not be shown")
		}

		res, err := svc.Run(ctx, apprun.Request{
			Description: description,
			Decider:     decider,
		})
		if err != nil {
			return fmt.Errorf("could not run task: %w", err)
		}

		// The stack stops once we return, the deferred progress artifacts
		// would never be rendered.
		if res.Outcome == model.HistoryOutcomeCompleted {
			stack.presenter.ArtifactsProduced(res.Artifacts)
		}

		if res.Outcome == model.HistoryOutcomeFailed {
			if res.Err != nil {
				return fmt.Errorf("task failed: %w", res.Err)
			}
			return fmt.Errorf("task failed")
		}

		return nil
	})
}

// askDecider asks the decision on the terminal.
func askDecider(in io.Reader, out io.Writer) apprun.Decider {
	r := bufio.NewReader(in)
	return func(ctx context.Context, req model.ApprovalRequest) (bool, error) {
		fmt.Fprint(out, "Approve? [y/N]: ")

		answer, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, fmt.Errorf("could not read answer: %w", err)
		}

		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	}
}
