package store

import (
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/sequoia-network/sequoia/lib"
)

/*
	This file implements the persistent key value store of the node on top of
	badger. The store exposes one-off reads and writes for convenience plus
	transactional Update/View callbacks; everything written while applying one
	block goes through a single Update so the round history can never be
	half-persisted.
*/

var _ lib.StoreI = &Store{} // enforce the StoreI interface

// Store is the badger backed implementation of lib.StoreI
type Store struct {
	db  *badger.DB
	log lib.LoggerI
}

// New() opens (or creates) the database under the configured data directory
func New(config lib.Config, log lib.LoggerI) (*Store, lib.ErrorI) {
	opts := badger.DefaultOptions(filepath.Join(config.DataDirPath, config.DBName))
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithValueLogFileSize(config.ValueLogSize).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, ErrStoreOpen(err)
	}
	return &Store{db: db, log: log}, nil
}

// NewInMemory() opens a non-disk store, used by tests
func NewInMemory(log lib.LoggerI) (*Store, lib.ErrorI) {
	config := lib.DefaultConfig()
	config.InMemory = true
	return New(config, log)
}

// Get() returns the value bytes under the key, nil if the key is absent
func (s *Store) Get(key []byte) (value []byte, err lib.ErrorI) {
	err = s.View(func(txn lib.RStoreI) lib.ErrorI {
		value, err = txn.Get(key)
		return err
	})
	return
}

// Set() writes the value bytes under the key in a standalone transaction
func (s *Store) Set(key, value []byte) lib.ErrorI {
	return s.Update(func(txn lib.RWStoreI) lib.ErrorI { return txn.Set(key, value) })
}

// Delete() removes the key and its value in a standalone transaction
func (s *Store) Delete(key []byte) lib.ErrorI {
	return s.Update(func(txn lib.RWStoreI) lib.ErrorI { return txn.Delete(key) })
}

// Update() runs the callback inside a read-write transaction committed atomically
func (s *Store) Update(fn func(txn lib.RWStoreI) lib.ErrorI) lib.ErrorI {
	var inner lib.ErrorI
	if err := s.db.Update(func(txn *badger.Txn) error {
		if inner = fn(&Txn{txn: txn}); inner != nil {
			return inner
		}
		return nil
	}); err != nil {
		if inner != nil {
			return inner
		}
		return ErrStoreSet(err)
	}
	return nil
}

// View() runs the callback inside a read-only transaction
func (s *Store) View(fn func(txn lib.RStoreI) lib.ErrorI) lib.ErrorI {
	var inner lib.ErrorI
	if err := s.db.View(func(txn *badger.Txn) error {
		if inner = fn(&Txn{txn: txn}); inner != nil {
			return inner
		}
		return nil
	}); err != nil {
		if inner != nil {
			return inner
		}
		return ErrStoreGet(err)
	}
	return nil
}

// Close() gracefully stops the database
func (s *Store) Close() lib.ErrorI {
	if err := s.db.Close(); err != nil {
		return ErrStoreClose(err)
	}
	return nil
}

var _ lib.RWStoreI = &Txn{} // enforce the RWStoreI interface

// Txn adapts a badger transaction to the lib store contracts
type Txn struct {
	txn *badger.Txn
}

// Get() returns the value bytes under the key, nil if the key is absent
func (t *Txn) Get(key []byte) ([]byte, lib.ErrorI) {
	item, err := t.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, ErrStoreGet(err)
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, ErrStoreGet(err)
	}
	return value, nil
}

// Set() writes the value bytes under the key
func (t *Txn) Set(key, value []byte) lib.ErrorI {
	if err := t.txn.Set(key, value); err != nil {
		return ErrStoreSet(err)
	}
	return nil
}

// Delete() removes the key and its value
func (t *Txn) Delete(key []byte) lib.ErrorI {
	if err := t.txn.Delete(key); err != nil {
		return ErrStoreDelete(err)
	}
	return nil
}
