package memory

import (
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure KeyValueStore implements the interface.
var _ driven.KeyValueStore = (*KeyValueStore)(nil)

// KeyValueStore is an in-memory implementation of driven.KeyValueStore.
type KeyValueStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	subs   subscribers
}

// NewKeyValueStore creates an empty store.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{values: make(map[string][]byte)}
}

// Get returns a copy of the value for key.
func (s *KeyValueStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores value and notifies subscribers.
func (s *KeyValueStore) Set(key string, value []byte) error {
	s.mu.Lock()
	s.values[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	s.subs.notify(key, value)
	return nil
}

// Delete removes key and notifies subscribers with nil.
func (s *KeyValueStore) Delete(key string) error {
	s.mu.Lock()
	_, existed := s.values[key]
	delete(s.values, key)
	s.mu.Unlock()
	if existed {
		s.subs.notify(key, nil)
	}
	return nil
}

// Subscribe registers fn for changes to key.
func (s *KeyValueStore) Subscribe(key string, fn func(value []byte)) func() {
	return s.subs.add(key, fn)
}

// Close is a no-op.
func (s *KeyValueStore) Close() error {
	return nil
}

// subscribers is a registry of per-key change callbacks.
type subscribers struct {
	mu     sync.Mutex
	nextID int
	byKey  map[string]map[int]func([]byte)
}

func (s *subscribers) add(key string, fn func([]byte)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byKey == nil {
		s.byKey = make(map[string]map[int]func([]byte))
	}
	if s.byKey[key] == nil {
		s.byKey[key] = make(map[int]func([]byte))
	}
	s.nextID++
	id := s.nextID
	s.byKey[key][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byKey[key], id)
	}
}

// notify calls subscribers outside the lock so callbacks may re-enter the store.
func (s *subscribers) notify(key string, value []byte) {
	s.mu.Lock()
	fns := make([]func([]byte), 0, len(s.byKey[key]))
	for _, fn := range s.byKey[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		var v []byte
		if value != nil {
			v = append([]byte(nil), value...)
		}
		fn(v)
	}
}
