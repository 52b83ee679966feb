// Package storage provides the durable key-value mirror of the medication
// collection. A single key holds the JSON-serialized array of all records:
// full read on startup, full overwrite on every mutation, no schema
// versioning.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/medtrack-app/medtrack/internal/medication"
	"go.uber.org/zap"
)

const medicationsKey = "medtrack:medications"

// BadgerStore persists the collection blob in BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens (or creates) the Badger database at path.
func Open(path string, logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil). // Disable verbose logging
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20). // 16MB value log files
		WithMemTableSize(16 << 20)      // 16MB memtable

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &BadgerStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// Load reads the full collection. A missing key means a fresh install and
// yields an empty collection, not an error.
func (b *BadgerStore) Load() ([]medication.Medication, error) {
	var raw []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(medicationsKey))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			raw = append([]byte{}, v...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return []medication.Medication{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read medications: %w", err)
	}

	var meds []medication.Medication
	if err := json.Unmarshal(raw, &meds); err != nil {
		return nil, fmt.Errorf("failed to decode medications: %w", err)
	}
	return meds, nil
}

// Save overwrites the full collection blob.
func (b *BadgerStore) Save(meds []medication.Medication) error {
	raw, err := json.Marshal(meds)
	if err != nil {
		return fmt.Errorf("failed to encode medications: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(medicationsKey), raw)
	})
}
