// Package memory provides an in-process backend.Store.
// Values are JSON-encoded on write so callers observe the same round-trip as with persistent stores.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/DOCHIS/laftel-plus/backend"
)

// Store implements backend.Store in memory
type Store struct {
	backend.Broadcaster

	mu     sync.RWMutex
	data   map[string]json.RawMessage
	closed bool

	// FailSet makes the next Set calls fail, for exercising error paths
	FailSet error
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{data: make(map[string]json.RawMessage)}
}

// Get decodes the value stored under key into dst
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	raw, ok := s.data[key]
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return false, fmt.Errorf("store is closed")
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Set writes all values atomically
func (s *Store) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", k, err)
		}
		encoded[k] = raw
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("store is closed")
	}
	if s.FailSet != nil {
		err := s.FailSet
		s.mu.Unlock()
		return err
	}
	for k, raw := range encoded {
		s.data[k] = raw
	}
	s.mu.Unlock()

	s.Publish(backend.MapKeys(values))
	return nil
}

// Delete removes keys; missing keys are ignored
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	for _, k := range keys {
		delete(s.data, k)
	}
	s.mu.Unlock()

	s.Publish(keys)
	return nil
}

// Keys returns all stored keys in sorted order
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Raw returns the encoded value for key, for assertions in tests
func (s *Store) Raw(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	return string(raw), ok
}

// Close marks the store closed
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
