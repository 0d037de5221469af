package lib

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/run"

	"github.com/slok/jarvis/internal/app/catalog"
	"github.com/slok/jarvis/internal/app/history"
	apprun "github.com/slok/jarvis/internal/app/run"
	"github.com/slok/jarvis/internal/approval"
	"github.com/slok/jarvis/internal/backend/rest"
	"github.com/slok/jarvis/internal/conventions"
	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/progress"
	"github.com/slok/jarvis/internal/push"
	"github.com/slok/jarvis/internal/session"
	"github.com/slok/jarvis/internal/storage"
	"github.com/slok/jarvis/internal/storage/memory"
	"github.com/slok/jarvis/internal/storage/sqlite"
	"github.com/slok/jarvis/internal/submission"
)

// Config configures the SDK client.
//
// Only ServerURL is required, the rest of the fields have sensible defaults.
type Config struct {
	// ServerURL is the backend HTTP base URL (e.g. http://localhost:8000). The
	// push channel endpoint is derived from it.
	ServerURL string

	// DBPath is the SQLite history database path.
	// Default: ~/.jarvis/jarvis.db.
	DBPath string

	// DisableHistory keeps the history in memory only, nothing is written on disk.
	DisableHistory bool

	// ReconnectDelay is the fixed delay before reconnecting the push channel.
	// Default: 3s.
	ReconnectDelay time.Duration

	// ArtifactsDelay is the delay to attach the artifacts to the progress once
	// the task is completed. Default: 500ms.
	ArtifactsDelay time.Duration

	// PingInterval enables push channel keepalive pings. Default: disabled.
	PingInterval time.Duration

	// HTTPClient is used for the backend requests. Default: http.DefaultClient.
	HTTPClient *http.Client

	// Presenter receives the state changes. Default: none.
	Presenter Presenter

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	cfg := model.ClientConfig{
		ServerURL:      c.ServerURL,
		ReconnectDelay: c.ReconnectDelay,
		ArtifactsDelay: c.ArtifactsDelay,
		PingInterval:   c.PingInterval,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if c.DBPath == "" && !c.DisableHistory {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DBPath = conventions.DBPath(filepath.Join(home, conventions.DefaultDataDir))
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point.
//
// Create a Client with [New], run its loop with [Client.Run] and release its
// resources with [Client.Close]. A Client is safe for concurrent use.
type Client struct {
	push     *push.Manager
	session  *session.Session
	catalog  *catalog.Service
	history  *history.Service
	runner   *apprun.Service
	logger   log.Logger
	closeFns []func() error
}

// New creates a new SDK client. It doesn't connect to the backend until
// [Client.Run] is called.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, mapError(fmt.Errorf("invalid config: %w", err))
	}
	logger := cfg.Logger

	backendClient, err := rest.NewClient(rest.ClientConfig{
		BaseURL:    cfg.ServerURL,
		HTTPClient: cfg.HTTPClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create backend client: %w", err)
	}

	pushURL, err := push.URLFromBase(cfg.ServerURL)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not get push url: %w", err))
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

	tracker, err := progress.NewTracker(progress.TrackerConfig{
		ArtifactsDelay: cfg.ArtifactsDelay,
		Logger:         logger,
	})
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

	var closeFns []func() error
	var repo storage.Repository
	if cfg.DisableHistory {
		repo, err = memory.NewRepository(memory.RepositoryConfig{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
	} else {
		sqliteRepo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: cfg.DBPath, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		repo = sqliteRepo
		closeFns = append(closeFns, sqliteRepo.Close)
	}

	var presenter session.Presenter = session.NoopPresenter
	if cfg.Presenter != nil {
		presenter = presenterAdapter{p: cfg.Presenter}
	}

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
		return nil, fmt.Errorf("could not create session: %w", err)
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{Backend: backendClient, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create catalog service: %w", err)
	}

	historySvc, err := history.NewService(history.ServiceConfig{Repository: repo, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create history service: %w", err)
	}

	runSvc, err := apprun.NewService(apprun.ServiceConfig{Session: sess, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create run service: %w", err)
	}

	return &Client{
		push:     pushManager,
		session:  sess,
		catalog:  catalogSvc,
		history:  historySvc,
		runner:   runSvc,
		logger:   logger,
		closeFns: closeFns,
	}, nil
}

// Run connects to the backend and runs the client loop until the context is
// cancelled. The push channel is reconnected on every connection loss. Run can
// only be called once per client.
//
// Returns nil on context cancellation.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group

	g.Add(
		func() error { return c.push.Run(ctx) },
		func(_ error) { cancel() },
	)

	g.Add(
		func() error { return c.session.Run(ctx) },
		func(_ error) { cancel() },
	)

	return mapError(g.Run())
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	for _, fn := range c.closeFns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// Connected returns true while the push channel is connected.
func (c *Client) Connected() bool {
	return c.push.Phase() == model.ConnectionPhaseConnected
}
