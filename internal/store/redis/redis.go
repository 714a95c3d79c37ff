package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/store"
)

// Ensure redisStore implements store.Store.
var _ store.Store = (*redisStore)(nil)

const snapshotKey = "botilito:jobs"

type redisStore struct {
	client *goredis.Client
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed job store holding the snapshot
// under a single namespaced key.
func NewRedisStore(client *goredis.Client, logger *zap.Logger) store.Store {
	return &redisStore{client: client, logger: logger}
}

func (s *redisStore) Load(ctx context.Context) (map[string]*domain.Job, error) {
	data, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return map[string]*domain.Job{}, nil
		}
		return nil, fmt.Errorf("redis: load snapshot: %w", err)
	}

	jobs, ok := store.DecodeSnapshot(data)
	if !ok {
		s.logger.Warn("Discarding unreadable job snapshot", zap.String("key", snapshotKey))
		return map[string]*domain.Job{}, nil
	}
	return jobs, nil
}

func (s *redisStore) Save(ctx context.Context, jobs map[string]*domain.Job) error {
	data, err := store.EncodeSnapshot(jobs)
	if err != nil {
		return fmt.Errorf("redis: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: save snapshot: %w", err)
	}
	return nil
}
