package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/run"

	"github.com/slok/jarvis/internal/approval"
	"github.com/slok/jarvis/internal/backend/rest"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/printer"
	"github.com/slok/jarvis/internal/progress"
	"github.com/slok/jarvis/internal/push"
	"github.com/slok/jarvis/internal/session"
	"github.com/slok/jarvis/internal/storage/sqlite"
	"github.com/slok/jarvis/internal/submission"
)

// clientStack is the running client: push channel, session loop and history.
type clientStack struct {
	push      *push.Manager
	session   *session.Session
	presenter *printer.ConsolePresenter
	repo      *sqlite.Repository
}

// newClientStack wires a client stack, its session presents on the console.
func newClientStack(ctx context.Context, rootCmd *RootCommand) (*clientStack, error) {
	logger := rootCmd.Logger

	cfg, err := rootCmd.ClientConfig(ctx)
	if err != nil {
		return nil, err
	}

	backendClient, err := rest.NewClient(rest.ClientConfig{BaseURL: cfg.ServerURL, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create backend client: %w", err)
	}

	pushURL, err := push.URLFromBase(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("could not get push url: %w", err)
	}
	pushManager, err := push.NewManager(push.ManagerConfig{
		URL:            pushURL,
		ReconnectDelay: cfg.ReconnectDelay,
		PingInterval:   cfg.PingInterval,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create push manager: %w", err)
	}

	tracker, err := progress.NewTracker(progress.TrackerConfig{ArtifactsDelay: cfg.ArtifactsDelay, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create progress tracker: %w", err)
	}

	submitter, err := submission.NewClient(submission.ClientConfig{Backend: backendClient, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create submission client: %w", err)
	}

	coordinator, err := approval.NewCoordinator(approval.CoordinatorConfig{Backend: backendClient, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create approval coordinator: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: cfg.DBPath, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	presenter := printer.NewConsolePresenter(rootCmd.Stdout, rootCmd.NoColor)
	sess, err := session.New(session.SessionConfig{
		Events:      pushManager,
		Submitter:   submitter,
		Coordinator: coordinator,
		Tracker:     tracker,
		Presenter:   presenter,
		History:     repo,
		Logger:      logger,
	})
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("could not create session: %w", err)
	}

	return &clientStack{push: pushManager, session: sess, presenter: presenter, repo: repo}, nil
}

// waitConnected waits until the push channel is connected or the timeout is reached.
func (s *clientStack) waitConnected(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		if s.push.Phase() == model.ConnectionPhaseConnected {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}
}

// runWith runs the stack loops together with fn. Everything is stopped when fn
// returns, its error is returned.
func (s *clientStack) runWith(ctx context.Context, fn func(ctx context.Context) error) error {
	defer s.repo.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group

	g.Add(
		func() error { return s.push.Run(ctx) },
		func(_ error) { cancel() },
	)

	g.Add(
		func() error { return s.session.Run(ctx) },
		func(_ error) { cancel() },
	)

	g.Add(
		func() error { return fn(ctx) },
		func(_ error) { cancel() },
	)

	return g.Run()
}
