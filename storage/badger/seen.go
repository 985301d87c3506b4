package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/curator/storage"
)

// SeenRepository implements storage.SeenRepository for BadgerDB.
type SeenRepository struct {
	backend *Backend
}

var _ storage.SeenRepository = (*SeenRepository)(nil)

// NewSeenRepository creates a new SeenRepository.
func NewSeenRepository(backend *Backend) *SeenRepository {
	return &SeenRepository{backend: backend}
}

func exists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// Admit records the URL and fingerprint of rec when neither is present.
// Concurrent admissions of the same URL conflict in Badger; the retried
// transaction then observes the winner's write and returns false.
func (r *SeenRepository) Admit(ctx context.Context, rec storage.SeenRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if rec.AdmittedAt.IsZero() {
		rec.AdmittedAt = time.Now().UTC()
	}
	value, err := storage.MarshalSeenRecord(&rec)
	if err != nil {
		return false, err
	}

	var admitted bool
	err = r.backend.Update(func(tx *badger.Txn) error {
		admitted = false
		urlKey := makeSeenURLKey(rec.URL)
		found, err := exists(tx, urlKey)
		if err != nil || found {
			return err
		}
		var fpKey []byte
		if rec.Fingerprint != "" {
			fpKey = makeSeenFingerprintKey(rec.Fingerprint)
			found, err = exists(tx, fpKey)
			if err != nil || found {
				return err
			}
		}

		if err := tx.Set(urlKey, value); err != nil {
			return err
		}
		if fpKey != nil {
			if err := tx.Set(fpKey, []byte(rec.URL)); err != nil {
				return err
			}
		}
		admitted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return admitted, nil
}

// ForEachSeen calls fn for every admitted record in URL order.
func (r *SeenRepository) ForEachSeen(ctx context.Context, fn func(rec storage.SeenRecord) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(seenURLPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec *storage.SeenRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				rec, err = storage.UnmarshalSeenRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(*rec); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// CountSeen returns the number of admitted URLs.
func (r *SeenRepository) CountSeen(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(seenURLPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// ClearSeen removes every admitted URL and fingerprint.
func (r *SeenRepository) ClearSeen(ctx context.Context) error {
	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, prefix := range []string{seenURLPrefix, seenFingerprintPrefix} {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)
			opts.PrefetchValues = false
			iter := tx.NewIterator(opts)
			for iter.Rewind(); iter.Valid(); iter.Next() {
				keys = append(keys, iter.Item().KeyCopy(nil))
			}
			iter.Close()
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	wb := r.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}
