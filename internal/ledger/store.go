// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ledger persists the set of confirmed renditions across restarts.
// It is the durable half of the resolution memoization the daemon layers on
// top of the stateless resolver: the in-memory/redis cache absorbs request
// bursts, the ledger feeds the revalidation worker and the export snapshot.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "rend:"

// ErrNotFound marks a lookup for a source with no recorded rendition.
var ErrNotFound = errors.New("ledger: rendition not recorded")

// Record is one confirmed rendition.
type Record struct {
	SourceURL   string    `json:"sourceUrl"`
	ManifestURL string    `json:"manifestUrl"`
	Strategy    string    `json:"strategy"`
	ConfirmedAt time.Time `json:"confirmedAt"`
	CheckedAt   time.Time `json:"checkedAt"`
}

// Store is a badger-backed rendition ledger.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the ledger at path. An empty path opens an
// in-memory instance, used by tests.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put records (or refreshes) a confirmed rendition.
func (s *Store) Put(_ context.Context, rec Record) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+rec.SourceURL), buf)
	})
}

// Get returns the recorded rendition for sourceURL, or ErrNotFound.
func (s *Store) Get(_ context.Context, sourceURL string) (Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + sourceURL))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete removes the recorded rendition for sourceURL. Deleting an absent
// record is not an error.
func (s *Store) Delete(_ context.Context, sourceURL string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + sourceURL))
	})
}

// List returns all recorded renditions.
func (s *Store) List(_ context.Context) ([]Record, error) {
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
