package run

import (
	"context"
	"fmt"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/session"
)

// TaskSession is the running session the task is submitted through.
type TaskSession interface {
	Submit(ctx context.Context, text string) error
	Resolve(ctx context.Context, approved bool) (bool, error)
	Results() <-chan session.Result
}

// Decider decides on an approval request, true approves it.
type Decider func(ctx context.Context, req model.ApprovalRequest) (bool, error)

// AlwaysApprove approves every request.
func AlwaysApprove(context.Context, model.ApprovalRequest) (bool, error) { return true, nil }

// AlwaysReject rejects every request.
func AlwaysReject(context.Context, model.ApprovalRequest) (bool, error) { return false, nil }

// ServiceConfig is the configuration for the run service.
type ServiceConfig struct {
	Session TaskSession
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Session == nil {
		return fmt.Errorf("session is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.run.Service"})

	return nil
}

// Service submits a single task and follows it until it's finished.
type Service struct {
	session TaskSession
	logger  log.Logger
}

// NewService creates a new run service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		session: cfg.Session,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the run request parameters.
type Request struct {
	Description string
	// Decider is called for every approval request, rejects by default.
	Decider Decider
}

// Run submits the task and waits for its final result. The session loop must
// be running.
func (s *Service) Run(ctx context.Context, req Request) (*session.Result, error) {
	decide := req.Decider
	if decide == nil {
		decide = AlwaysReject
	}

	if err := s.session.Submit(ctx, req.Description); err != nil {
		return nil, fmt.Errorf("could not submit task: %w", err)
	}
	s.logger.Debugf("Task submitted")

	for {
		var res session.Result
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res = <-s.session.Results():
		}

		if res.Final() {
			return &res, nil
		}

		if res.Approval == nil {
			return nil, fmt.Errorf("waiting approval result without approval request: %w", model.ErrNotValid)
		}

		approved, err := decide(ctx, *res.Approval)
		if err != nil {
			return nil, fmt.Errorf("could not decide on approval: %w", err)
		}
		s.logger.Infof("Task %s approval decision: approved=%t", res.Approval.TaskID, approved)

		ok, err := s.session.Resolve(ctx, approved)
		if err != nil {
			return nil, fmt.Errorf("could not resolve approval: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("approval for task %s is no longer pending: %w", res.Approval.TaskID, model.ErrNotFound)
		}
	}
}
