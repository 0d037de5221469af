package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/session"
)

// Chat commands.
const (
	CommandApprove = "/approve"
	CommandReject  = "/reject"
	CommandHide    = "/hide"
	CommandHelp    = "/help"
	CommandQuit    = "/quit"
)

const helpText = `Type a task description to submit it.
  /approve  approve the pending task
  /reject   reject the pending task
  /hide     hide the progress view
  /quit     exit`

// ChatSession is the running session the chat drives.
type ChatSession interface {
	Submit(ctx context.Context, text string) error
	Resolve(ctx context.Context, approved bool) (bool, error)
	HideProgress(ctx context.Context) error
	Results() <-chan session.Result
}

// ServiceConfig is the configuration for the chat service.
type ServiceConfig struct {
	Session ChatSession
	Input   io.Reader
	// Output receives the chat notices (help, rejected inputs...).
	Output io.Writer
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Session == nil {
		return fmt.Errorf("session is required")
	}
	if c.Input == nil {
		return fmt.Errorf("input is required")
	}
	if c.Output == nil {
		c.Output = io.Discard
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.chat.Service"})

	return nil
}

// Service is the interactive chat, each input line is a task submission or a
// chat command.
type Service struct {
	session ChatSession
	input   io.Reader
	out     io.Writer
	logger  log.Logger
}

// NewService creates a new chat service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		session: cfg.Session,
		input:   cfg.Input,
		out:     cfg.Output,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the chat request parameters.
type Request struct{}

// Run reads the input until it ends, the quit command is received or the
// context is cancelled. When the input ends with a submission or a decision in
// flight, its reply is waited for. The session loop must be running.
func (s *Service) Run(ctx context.Context, _ Request) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.input)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	results := s.session.Results()
	waiting := false
	inputDone := false
	for {
		if inputDone && !waiting {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil

		case res := <-results:
			// A result waiting for approval needs a new input line.
			waiting = false
			s.logger.Debugf("Task result received: %s", res.Outcome)

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("could not read input: %w", err)
					}
				default:
				}
				if waiting {
					s.logger.Debugf("Input ended, waiting for the task reply")
				}
				inputDone = true
				lines = nil
				continue
			}

			sent, quit, err := s.handleLine(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			if sent {
				waiting = true
			}
		}
	}
}

// handleLine handles an input line, sent is true when a request was sent to
// the backend and its result will be published.
func (s *Service) handleLine(ctx context.Context, line string) (sent, quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, false, nil
	}

	switch strings.ToLower(line) {
	case CommandQuit:
		return false, true, nil

	case CommandHelp:
		s.notify(helpText)
		return false, false, nil

	case CommandHide:
		if err := s.session.HideProgress(ctx); err != nil {
			return false, false, fmt.Errorf("could not hide progress: %w", err)
		}
		return false, false, nil

	case CommandApprove, CommandReject:
		approved := strings.ToLower(line) == CommandApprove
		ok, err := s.session.Resolve(ctx, approved)
		if err != nil {
			return false, false, fmt.Errorf("could not resolve approval: %w", err)
		}
		if !ok {
			s.notify("There is no pending approval.")
		}
		return ok, false, nil
	}

	if strings.HasPrefix(line, "/") {
		s.notify(fmt.Sprintf("Unknown command %q, use %s.", line, CommandHelp))
		return false, false, nil
	}

	err = s.session.Submit(ctx, line)
	switch {
	case err == nil:
		return true, false, nil
	case errors.Is(err, session.ErrSubmissionInFlight):
		s.notify("A task is already being submitted, wait for its reply.")
	case errors.Is(err, model.ErrNotValid):
		s.notify("The task description is not valid.")
	default:
		return false, false, fmt.Errorf("could not submit task: %w", err)
	}

	return false, false, nil
}

func (s *Service) notify(msg string) {
	_, _ = fmt.Fprintln(s.out, msg)
}
