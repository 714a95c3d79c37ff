package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/domain"
	"github.com/lordalex/botilito/internal/store"
)

// Ensure JSONStore implements store.Store.
var _ store.Store = (*JSONStore)(nil)

// JSONStore persists the job snapshot as a single JSON file on disk.
// Writes go through a temp file and rename so a crash mid-save never
// leaves a truncated snapshot behind.
type JSONStore struct {
	path   string
	logger *zap.Logger
}

// NewJSONStore creates a file-backed job store at the given path.
func NewJSONStore(path string, logger *zap.Logger) *JSONStore {
	return &JSONStore{path: path, logger: logger}
}

func (s *JSONStore) Load(ctx context.Context) (map[string]*domain.Job, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]*domain.Job{}, nil
		}
		return nil, fmt.Errorf("jsonfile: read snapshot: %w", err)
	}

	jobs, ok := store.DecodeSnapshot(data)
	if !ok {
		s.logger.Warn("Discarding unreadable job snapshot", zap.String("path", s.path))
		return map[string]*domain.Job{}, nil
	}
	return jobs, nil
}

func (s *JSONStore) Save(ctx context.Context, jobs map[string]*domain.Job) error {
	data, err := store.EncodeSnapshot(jobs)
	if err != nil {
		return fmt.Errorf("jsonfile: encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("jsonfile: create directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("jsonfile: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("jsonfile: replace snapshot: %w", err)
	}
	return nil
}
