package store

import (
	"context"
	"encoding/json"

	"github.com/lordalex/botilito/internal/domain"
)

// SchemaVersion guards the persisted envelope. A snapshot written by a
// different schema is discarded on load rather than migrated.
const SchemaVersion = 1

// Store defines durable persistence of the whole job map under a single
// namespaced key. Persistence is best-effort: the registry logs and
// swallows Save failures. Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the last-persisted job map, or an empty map when the
	// snapshot is absent, corrupt, or from a different schema version.
	Load(ctx context.Context) (map[string]*domain.Job, error)

	// Save overwrites the persisted snapshot with the given map.
	Save(ctx context.Context, jobs map[string]*domain.Job) error
}

// envelope is the on-disk/on-wire shape of a snapshot.
type envelope struct {
	SchemaVersion int                    `json:"schema_version"`
	Jobs          map[string]*domain.Job `json:"jobs"`
}

// EncodeSnapshot serializes the job map under the current schema version.
func EncodeSnapshot(jobs map[string]*domain.Job) ([]byte, error) {
	return json.Marshal(envelope{SchemaVersion: SchemaVersion, Jobs: jobs})
}

// DecodeSnapshot parses a snapshot, dropping it wholesale on schema
// mismatch and skipping entries that fail basic sanity checks. Any job
// persisted as processing comes back pending: no poll loop was running
// while the process was away, so the job must be re-driven from scratch.
func DecodeSnapshot(data []byte) (map[string]*domain.Job, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if env.SchemaVersion != SchemaVersion {
		return nil, false
	}

	jobs := make(map[string]*domain.Job, len(env.Jobs))
	for id, job := range env.Jobs {
		if job == nil || job.ID == "" || job.ID != id {
			continue
		}
		if job.Status == domain.StatusProcessing {
			job.Status = domain.StatusPending
		}
		jobs[id] = job
	}
	return jobs, true
}
