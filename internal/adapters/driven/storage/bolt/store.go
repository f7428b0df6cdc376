// Package bolt provides a bbolt-backed implementation of driven.KeyValueStore.
// It holds the chat sessions, the current session id, the embedding API key
// and the backend auth token.
package bolt

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// StateFile is the name of the database file inside the data directory.
const StateFile = "state.db"

var bucketState = []byte("state")

// Ensure Store implements the interface.
var _ driven.KeyValueStore = (*Store)(nil)

// Store is a single-bucket bbolt key-value store.
type Store struct {
	db   *bbolt.DB
	path string

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func([]byte)
}

// NewStore opens (or creates) the state database in dataDir.
// If dataDir is empty, defaults to ~/.docchat/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docchat", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, StateFile)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state bucket: %w", err)
	}

	return &Store{
		db:   db,
		path: path,
		subs: make(map[string]map[int]func([]byte)),
	}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value for key, or domain.ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketState).Get([]byte(key))
		if v == nil {
			return domain.ErrNotFound
		}
		// Values are only valid for the life of the transaction.
		out = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores value and notifies subscribers.
func (s *Store) Set(key string, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if value == nil {
			value = []byte{}
		}
		return tx.Bucket(bucketState).Put([]byte(key), value)
	})
	if err != nil {
		return &domain.StorageError{Op: "set " + key, Err: err}
	}
	s.notify(key, value)
	return nil
}

// Delete removes key and notifies subscribers with nil.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketState).Delete([]byte(key))
	})
	if err != nil {
		return &domain.StorageError{Op: "delete " + key, Err: err}
	}
	s.notify(key, nil)
	return nil
}

// Subscribe registers fn for changes to key made through this store.
func (s *Store) Subscribe(key string, fn func(value []byte)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]func([]byte))
	}
	s.nextID++
	id := s.nextID
	s.subs[key][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[key], id)
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) notify(key string, value []byte) {
	s.mu.Lock()
	fns := make([]func([]byte), 0, len(s.subs[key]))
	for _, fn := range s.subs[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}
