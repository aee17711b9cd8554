package checksum

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no digest is stored for a path.
var ErrNotFound = errors.New("digest not found")

// Store wraps Badger for digest persistence.
type Store struct {
	db *badger.DB
}

// OpenStore opens or creates a digest store at the given path.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the stored entry for an absolute path.
func (s *Store) Get(path string) (*Entry, error) {
	key := MakeKey(path)
	var entry Entry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(entry.Decode)
	})

	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Put stores an entry for an absolute path.
func (s *Store) Put(path string, entry *Entry) error {
	key := MakeKey(path)
	value, err := entry.Encode()
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes the entry for an absolute path.
func (s *Store) Delete(path string) error {
	key := MakeKey(path)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Clear removes all stored digests.
func (s *Store) Clear() error {
	prefix := MakeKeyPrefix()

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored digests.
func (s *Store) Count() (int64, error) {
	prefix := MakeKeyPrefix()
	var count int64

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}
