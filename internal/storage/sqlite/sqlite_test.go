package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/storage/sqlite"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func entryFixture(id string, at time.Time) model.HistoryEntry {
	return model.HistoryEntry{
		ID:          id,
		TaskID:      "task-" + id,
		Description: "list files",
		Outcome:     model.HistoryOutcomeCompleted,
		Text:        "Task executed",
		CreatedAt:   at,
	}
}

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositoryAddAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	e := entryFixture("01A", t0)
	require.NoError(t, repo.AddEntry(ctx, e))

	got, err := repo.GetEntry(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, e, *got)

	_, err = repo.GetEntry(ctx, "01X")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestRepositoryConstraints(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, repo.AddEntry(ctx, entryFixture("01A", t0)))

	err := repo.AddEntry(ctx, entryFixture("01A", t0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrAlreadyExists))

	err = repo.AddEntry(ctx, entryFixture("", t0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotValid))

	noOutcome := entryFixture("01B", t0)
	noOutcome.Outcome = ""
	err = repo.AddEntry(ctx, noOutcome)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotValid))
}

func TestRepositoryListEntries(t *testing.T) {
	tests := map[string]struct {
		limit  int
		expIDs []string
	}{
		"Without limit should return all the entries, latest first.": {
			limit:  0,
			expIDs: []string{"01D", "01C", "01B", "01A"},
		},

		"With limit should return the latest entries.": {
			limit:  2,
			expIDs: []string{"01D", "01C"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			// Same second entries are ordered by ID.
			require.NoError(t, repo.AddEntry(ctx, entryFixture("01A", t0)))
			require.NoError(t, repo.AddEntry(ctx, entryFixture("01C", t0.Add(time.Minute))))
			require.NoError(t, repo.AddEntry(ctx, entryFixture("01B", t0)))
			require.NoError(t, repo.AddEntry(ctx, entryFixture("01D", t0.Add(time.Minute))))

			entries, err := repo.ListEntries(ctx, test.limit)
			require.NoError(t, err)

			gotIDs := []string{}
			for _, e := range entries {
				gotIDs = append(gotIDs, e.ID)
			}
			assert.Equal(t, test.expIDs, gotIDs)
		})
	}
}

func TestRepositoryPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "jarvis.db")

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: dbPath})
	require.NoError(t, err)
	require.NoError(t, repo.AddEntry(ctx, entryFixture("01A", t0)))
	require.NoError(t, repo.Close())

	repo, err = sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: dbPath})
	require.NoError(t, err)
	defer repo.Close()

	entries, err := repo.ListEntries(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
