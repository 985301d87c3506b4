package badger

import (
	"log/slog"

	"github.com/poiesic/curator/storage"
)

// Repositories bundles the BadgerDB repositories sharing one backend.
type Repositories struct {
	backend  *Backend
	seen     *SeenRepository
	learning *LearningRepository
	runs     *RunRepository
}

var _ storage.Repositories = (*Repositories)(nil)

// Open opens the database directory at path and returns its repositories.
// A nil logger uses slog.Default().
func Open(path string, logger *slog.Logger) (storage.Repositories, error) {
	backend, err := OpenBackend(path, false, logger)
	if err != nil {
		return nil, err
	}
	return newRepositories(backend), nil
}

func newRepositories(backend *Backend) *Repositories {
	return &Repositories{
		backend:  backend,
		seen:     NewSeenRepository(backend),
		learning: NewLearningRepository(backend),
		runs:     NewRunRepository(backend),
	}
}

// Seen returns the seen-set repository.
func (r *Repositories) Seen() storage.SeenRepository {
	return r.seen
}

// Learning returns the learning snapshot repository.
func (r *Repositories) Learning() storage.LearningRepository {
	return r.learning
}

// Runs returns the run summary repository.
func (r *Repositories) Runs() storage.RunRepository {
	return r.runs
}

// Close closes the backend.
func (r *Repositories) Close() error {
	if r.backend.IsClosed() {
		return nil
	}
	return r.backend.Close()
}
