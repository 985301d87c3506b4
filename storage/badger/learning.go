package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/curator/learning"
	"github.com/poiesic/curator/storage"
)

// LearningRepository implements storage.LearningRepository for BadgerDB.
type LearningRepository struct {
	backend *Backend
}

var _ storage.LearningRepository = (*LearningRepository)(nil)

// NewLearningRepository creates a new LearningRepository.
func NewLearningRepository(backend *Backend) *LearningRepository {
	return &LearningRepository{backend: backend}
}

// SaveSnapshot persists the snapshot of snap.AgentID.
func (r *LearningRepository) SaveSnapshot(ctx context.Context, snap learning.Snapshot) error {
	if snap.AgentID == "" {
		return storage.ErrInvalidKey
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}
	value, err := storage.MarshalSnapshot(&snap)
	if err != nil {
		return err
	}
	return r.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeLearningKey(snap.AgentID), value)
	})
}

// LoadSnapshot retrieves the snapshot of an agent.
// Returns nil, nil if no snapshot exists.
func (r *LearningRepository) LoadSnapshot(ctx context.Context, agentID string) (*learning.Snapshot, error) {
	var snap *learning.Snapshot
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeLearningKey(agentID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			snap, unmarshalErr = storage.UnmarshalSnapshot(val)
			return unmarshalErr
		})
	}, false)

	return snap, err
}

// ListSnapshots returns every stored snapshot ordered by agent ID.
func (r *LearningRepository) ListSnapshots(ctx context.Context) ([]learning.Snapshot, error) {
	var out []learning.Snapshot
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(learningPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				snap, err := storage.UnmarshalSnapshot(val)
				if err != nil {
					return err
				}
				out = append(out, *snap)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return out, err
}
