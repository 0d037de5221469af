package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	entries map[string]model.HistoryEntry
	mu      sync.RWMutex
	logger  log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		entries: make(map[string]model.HistoryEntry),
		logger:  cfg.Logger,
	}, nil
}

// AddEntry stores a new history entry.
func (r *Repository) AddEntry(ctx context.Context, e model.HistoryEntry) error {
	if e.ID == "" {
		return fmt.Errorf("history entry id is required: %w", model.ErrNotValid)
	}
	if e.Outcome == "" {
		return fmt.Errorf("history entry outcome is required: %w", model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[e.ID]; ok {
		return fmt.Errorf("history entry with id %s: %w", e.ID, model.ErrAlreadyExists)
	}

	r.entries[e.ID] = e
	r.logger.Debugf("Added history entry: %s (%s)", e.ID, e.Outcome)

	return nil
}

// GetEntry retrieves a history entry by ID.
func (r *Repository) GetEntry(ctx context.Context, id string) (*model.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("history entry %s: %w", id, model.ErrNotFound)
	}

	return &e, nil
}

// ListEntries returns the latest history entries first.
func (r *Repository) ListEntries(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]model.HistoryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}

	// Same order as the SQL implementation (second precision, then ID).
	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].CreatedAt.Unix(), entries[j].CreatedAt.Unix()
		if ti != tj {
			return ti > tj
		}
		return entries[i].ID > entries[j].ID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
