// Package store persists DevFlow's questions, tags, answers, users, and
// sessions in a Badger key-value database. Multi-document invariants (tag
// counters, join records, question tag sets) are only ever changed inside a
// single transaction so readers never observe a half-applied change.
package store

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// EventPublisher is the interface for broadcasting live events.
// Store uses this to announce committed changes without depending on the
// SSE implementation details.
type EventPublisher interface {
	Publish(event any)
}

// NoopPublisher is a no-op implementation of EventPublisher for testing.
type NoopPublisher struct{}

// Publish implements EventPublisher.Publish as a no-op.
func (NoopPublisher) Publish(_ any) {}

// NewNoopPublisher creates a new no-op publisher for testing.
func NewNoopPublisher() EventPublisher {
	return NoopPublisher{}
}

// maxTxnRetries bounds how often a conflicted transaction is replayed
// before the error is surfaced to the caller.
const maxTxnRetries = 5

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Live event publisher for broadcasting committed changes.
	events EventPublisher
}

// New creates a new Store instance with the given database path and event
// publisher. The publisher is required and used to broadcast store changes.
func New(path string, logger *slog.Logger, events EventPublisher) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
		events: events,
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Helper methods for database operations.

// update runs fn in a read-write transaction, replaying it when the commit
// loses a serialization conflict. Badger aborts the losing transaction
// whole, so each replay starts from a fresh snapshot that includes the
// winner's writes: a find-or-create that lost the create race takes the
// increment path on replay. Nothing in fn may have side effects outside
// the transaction.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range maxTxnRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// set stores a value by key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// setTxn marshals value and writes it under key inside an open transaction.
func setTxn(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// getTxn reads and unmarshals the value under key inside an open transaction.
func getTxn(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// publish broadcasts an event after a successful commit. Never call this
// from inside an update closure: replayed transactions would announce the
// same change twice.
func (s *Store) publish(event any) {
	if s.events != nil {
		s.events.Publish(event)
	}
}
