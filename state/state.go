// Package state defines the engine's key/value state backend contract
// and a BoltDB-backed implementation. The original's state/mod.rs
// defines the same State trait but its only implementation
// (RocksDBState) is entirely commented out — rocksdb is not a
// dependency either the teacher or the rest of the example pack
// carries. github.com/boltdb/bolt is a real teacher dependency, so
// BoltState substitutes it as the concrete backend (see DESIGN.md
// Open Question 3): it is fully implemented here but, like the
// original's incomplete RocksDBState, not wired into the executor's
// hot path — no operator persists or recovers checkpointed state yet.
package state

import (
	"github.com/boltdb/bolt"
)

// State is the engine's key/value state interface, mirroring the
// original's State trait exactly.
type State interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
}

var bucketName = []byte("streamql_state")

// BoltState stores state in a single BoltDB bucket.
type BoltState struct {
	db *bolt.DB
}

func OpenBoltState(path string) (*BoltState, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltState{db: db}, nil
}

func (s *BoltState) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, err
}

func (s *BoltState) Put(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
}

func (s *BoltState) Close() error { return s.db.Close() }
