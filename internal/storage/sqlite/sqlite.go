package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// AddEntry stores a new history entry.
func (r *Repository) AddEntry(ctx context.Context, e model.HistoryEntry) error {
	if e.ID == "" {
		return fmt.Errorf("history entry id is required: %w", model.ErrNotValid)
	}
	if e.Outcome == "" {
		return fmt.Errorf("history entry outcome is required: %w", model.ErrNotValid)
	}

	query := `
		INSERT INTO history (id, task_id, description, outcome, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, e.ID, e.TaskID, e.Description, e.Outcome, e.Text, e.CreatedAt.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: history.") {
			return fmt.Errorf("history entry already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert history entry: %w", err)
	}

	r.logger.Debugf("Added history entry: %s (%s)", e.ID, e.Outcome)
	return nil
}

// GetEntry retrieves a history entry by ID.
func (r *Repository) GetEntry(ctx context.Context, id string) (*model.HistoryEntry, error) {
	query := `
		SELECT id, task_id, description, outcome, text, created_at
		FROM history
		WHERE id = ?
	`

	e, err := scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("history entry %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query history entry: %w", err)
	}

	return &e, nil
}

// ListEntries returns the latest history entries first.
func (r *Repository) ListEntries(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	query := `
		SELECT id, task_id, description, outcome, text, created_at
		FROM history
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query history: %w", err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		e, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (model.HistoryEntry, error) {
	var e model.HistoryEntry
	var createdAt int64

	err := s.Scan(&e.ID, &e.TaskID, &e.Description, &e.Outcome, &e.Text, &createdAt)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	e.CreatedAt = timeFromUnix(createdAt)

	return e, nil
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
