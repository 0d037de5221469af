package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/storage/memory"
)

func TestRepository(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := func(id string, at time.Time) model.HistoryEntry {
		return model.HistoryEntry{ID: id, TaskID: "t-" + id, Outcome: model.HistoryOutcomeAnswered, Text: "42", CreatedAt: at}
	}

	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository) error
		expErr  bool
	}{
		"Adding an entry should work": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				err := repo.AddEntry(ctx, entry("01A", t0))
				require.NoError(t, err)

				got, err := repo.GetEntry(ctx, "01A")
				require.NoError(t, err)
				assert.Equal(t, entry("01A", t0), *got)
				return nil
			},
		},

		"Adding a duplicate ID should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.AddEntry(ctx, entry("01A", t0)))

				err := repo.AddEntry(ctx, entry("01A", t0))
				assert.True(t, errors.Is(err, model.ErrAlreadyExists))
				return err
			},
			expErr: true,
		},

		"Adding an entry without ID should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				err := repo.AddEntry(ctx, entry("", t0))
				assert.True(t, errors.Is(err, model.ErrNotValid))
				return err
			},
			expErr: true,
		},

		"Getting a missing entry should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, err := repo.GetEntry(ctx, "missing")
				assert.True(t, errors.Is(err, model.ErrNotFound))
				return err
			},
			expErr: true,
		},

		"Listing should return the latest first and honor the limit": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.AddEntry(ctx, entry("01A", t0)))
				require.NoError(t, repo.AddEntry(ctx, entry("01C", t0.Add(time.Hour))))
				require.NoError(t, repo.AddEntry(ctx, entry("01B", t0)))

				all, err := repo.ListEntries(ctx, 0)
				require.NoError(t, err)
				require.Len(t, all, 3)
				assert.Equal(t, "01C", all[0].ID)
				assert.Equal(t, "01B", all[1].ID)
				assert.Equal(t, "01A", all[2].ID)

				limited, err := repo.ListEntries(ctx, 1)
				require.NoError(t, err)
				require.Len(t, limited, 1)
				assert.Equal(t, "01C", limited[0].ID)
				return nil
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: log.Noop})
			require.NoError(t, err)

			err = test.actions(context.Background(), t, repo)
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
