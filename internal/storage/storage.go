package storage

import (
	"context"

	"github.com/slok/jarvis/internal/model"
)

//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name Repository --structname MockRepository

// Repository is the interface for the local task history persistence.
type Repository interface {
	// AddEntry stores a new history entry, the ID must be set.
	AddEntry(ctx context.Context, e model.HistoryEntry) error
	// GetEntry returns a history entry by ID.
	GetEntry(ctx context.Context, id string) (*model.HistoryEntry, error)
	// ListEntries returns the latest entries first. A limit <= 0 returns all of them.
	ListEntries(ctx context.Context, limit int) ([]model.HistoryEntry, error)
}
