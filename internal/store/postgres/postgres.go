package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/store"
)

// Ensure pgStore implements store.Store.
var _ store.Store = (*pgStore)(nil)

const snapshotName = "botilito:jobs"

type pgStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgreSQL-backed job store. The whole
// snapshot lives in one row of job_snapshots, keyed by name.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) store.Store {
	return &pgStore{pool: pool, logger: logger}
}

// Migrate creates the snapshot table if it does not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS job_snapshots (
			name       TEXT PRIMARY KEY,
			snapshot   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("postgres: migrate job_snapshots: %w", err)
	}
	return nil
}

func (s *pgStore) Load(ctx context.Context) (map[string]*domain.Job, error) {
	query := `SELECT snapshot FROM job_snapshots WHERE name = $1`

	var data []byte
	err := s.pool.QueryRow(ctx, query, snapshotName).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return map[string]*domain.Job{}, nil
		}
		return nil, fmt.Errorf("postgres: load snapshot: %w", err)
	}

	jobs, ok := store.DecodeSnapshot(data)
	if !ok {
		s.logger.Warn("Discarding unreadable job snapshot", zap.String("name", snapshotName))
		return map[string]*domain.Job{}, nil
	}
	return jobs, nil
}

func (s *pgStore) Save(ctx context.Context, jobs map[string]*domain.Job) error {
	data, err := store.EncodeSnapshot(jobs)
	if err != nil {
		return fmt.Errorf("postgres: encode snapshot: %w", err)
	}

	query := `
		INSERT INTO job_snapshots (name, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET snapshot = $2, updated_at = now()`
	if _, err := s.pool.Exec(ctx, query, snapshotName, data); err != nil {
		return fmt.Errorf("postgres: save snapshot: %w", err)
	}
	return nil
}
