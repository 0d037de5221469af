package history

import (
	"context"
	"fmt"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/storage"
)

// ServiceConfig is the configuration for the history service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists the local task history.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the history request parameters.
type Request struct {
	// Limit is the max number of entries, <= 0 means all.
	Limit int
	// OutcomeFilter is an optional filter to only show entries with this outcome.
	OutcomeFilter *model.HistoryOutcome
	// TaskID is an optional filter to only show the entries of a task.
	TaskID string
}

// Run lists the history entries, latest first.
func (s *Service) Run(ctx context.Context, req Request) ([]model.HistoryEntry, error) {
	filtering := req.OutcomeFilter != nil || req.TaskID != ""

	// Filters are applied after listing, the limit can only be pushed down without them.
	limit := req.Limit
	if filtering {
		limit = 0
	}

	entries, err := s.repo.ListEntries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("could not list history: %w", err)
	}

	if filtering {
		filtered := make([]model.HistoryEntry, 0, len(entries))
		for _, e := range entries {
			if req.OutcomeFilter != nil && e.Outcome != *req.OutcomeFilter {
				continue
			}
			if req.TaskID != "" && e.TaskID != req.TaskID {
				continue
			}
			filtered = append(filtered, e)
		}
		entries = filtered

		if req.Limit > 0 && len(entries) > req.Limit {
			entries = entries[:req.Limit]
		}
	}

	s.logger.Debugf("found %d history entries", len(entries))
	return entries, nil
}
