package catalog

import (
	"context"
	"fmt"

	"github.com/slok/jarvis/internal/backend"
	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
)

// Kind is the kind of catalog to list.
type Kind string

const (
	KindSkills Kind = "skills"
	KindTools  Kind = "tools"
)

// ServiceConfig is the configuration for the catalog service.
type ServiceConfig struct {
	Backend backend.Client
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Backend == nil {
		return fmt.Errorf("backend client is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists the backend capabilities.
type Service struct {
	backend backend.Client
	logger  log.Logger
}

// NewService creates a new catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		backend: cfg.Backend,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the catalog request parameters.
type Request struct {
	Kind Kind
}

// Result is the listed catalog, only the requested kind is set.
type Result struct {
	Skills []model.Skill
	Tools  []model.Tool
}

// Run lists the requested catalog.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	s.logger.Debugf("listing %s", req.Kind)

	switch req.Kind {
	case KindSkills:
		skills, err := s.backend.ListSkills(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not list skills: %w", err)
		}
		return &Result{Skills: skills}, nil

	case KindTools:
		tools, err := s.backend.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not list tools: %w", err)
		}
		return &Result{Tools: tools}, nil
	}

	return nil, fmt.Errorf("unknown catalog kind %q: %w", req.Kind, model.ErrNotValid)
}
