// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"bytes"
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/storage"
)

// RunRepository implements storage.RunRepository for BadgerDB.
type RunRepository struct {
	backend *Backend
}

var _ storage.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository.
func NewRunRepository(backend *Backend) *RunRepository {
	return &RunRepository{backend: backend}
}

// SaveRun persists a run summary and indexes it by start time.
// Saving the same run again replaces the summary.
func (r *RunRepository) SaveRun(ctx context.Context, stats *core.RunStats) error {
	if stats == nil || stats.RunID == "" {
		return storage.ErrInvalidKey
	}
	value, err := storage.MarshalRunStats(stats)
	if err != nil {
		return err
	}
	return r.backend.Update(func(tx *badger.Txn) error {
		if err := tx.Set(makeRunKey(stats.RunID), value); err != nil {
			return err
		}
		return tx.Set(makeRunDateKey(stats.StartedAt, stats.RunID), []byte(stats.RunID))
	})
}

// GetRun retrieves a run summary by ID.
func (r *RunRepository) GetRun(ctx context.Context, runID string) (*core.RunStats, error) {
	var stats *core.RunStats
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		stats, err = readRun(tx, runID)
		return err
	}, false)
	return stats, err
}

func readRun(tx *badger.Txn, runID string) (*core.RunStats, error) {
	item, err := tx.Get(makeRunKey(runID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var stats *core.RunStats
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		stats, unmarshalErr = storage.UnmarshalRunStats(val)
		return unmarshalErr
	})
	return stats, err
}

// ListRuns retrieves run summaries, most recent first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]*core.RunStats, error) {
	var results []*core.RunStats
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent runs first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(runRecordDatePrefix)
		// Seek past the last possible key with this prefix
		startKey := append(append([]byte{}, prefix...), 0xFF)

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			item := iter.Item()
			if !bytes.HasPrefix(item.Key(), prefix) {
				break
			}

			var runID string
			if err := item.Value(func(val []byte) error {
				runID = string(val)
				return nil
			}); err != nil {
				return err
			}

			stats, err := readRun(tx, runID)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			results = append(results, stats)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return results, nil
}
