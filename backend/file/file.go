// Package file implements backend.Store as a single JSON object on disk.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/watcher"
	"go.uber.org/zap"
)

// Config holds file store configuration
type Config struct {
	FilePath string // Path to the JSON file
	Watch    bool   // Publish changes written by other processes
	Logger   *zap.Logger
}

// Store implements backend.Store for file-based storage
type Store struct {
	backend.Broadcaster

	filePath string
	log      *zap.Logger
	watcher  *watcher.Watcher

	mu   sync.Mutex
	data map[string]json.RawMessage
}

// New creates a file store, loading existing content if the file exists
func New(cfg Config) (*Store, error) {
	filePath := cfg.FilePath
	if filePath == "" {
		filePath = "laftelplus.json"
	}
	if !filepath.IsAbs(filePath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		filePath = filepath.Join(wd, filePath)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &Store{filePath: filePath, log: cfg.Logger}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	data, err := s.readFile()
	if err != nil {
		return nil, err
	}
	s.data = data

	if cfg.Watch {
		w, err := watcher.New(watcher.Config{
			Path:     filePath,
			OnChange: s.reload,
			Logger:   s.log,
		})
		if err != nil {
			return nil, err
		}
		if err := w.Start(); err != nil {
			w.Stop()
			return nil, err
		}
		s.watcher = w
	}

	return s, nil
}

// Path returns the resolved file path
func (s *Store) Path() string {
	return s.filePath
}

func (s *Store) readFile() (map[string]json.RawMessage, error) {
	content, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	data := make(map[string]json.RawMessage)
	if len(bytes.TrimSpace(content)) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", s.filePath, err)
	}
	return data, nil
}

// writeFile replaces the file atomically. Caller holds s.mu.
func (s *Store) writeFile(data map[string]json.RawMessage) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), ".laftelplus-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// reload re-reads the file after an external change and publishes keys whose values differ
func (s *Store) reload() {
	data, err := s.readFile()
	if err != nil {
		s.log.Warn("failed to reload store file", zap.String("path", s.filePath), zap.Error(err))
		return
	}

	s.mu.Lock()
	changed := diffKeys(s.data, data)
	s.data = data
	s.mu.Unlock()

	if len(changed) > 0 {
		s.log.Debug("store file changed externally", zap.Strings("keys", changed))
		s.Publish(changed)
	}
}

func diffKeys(old, cur map[string]json.RawMessage) []string {
	var changed []string
	for k, v := range cur {
		if prev, ok := old[k]; !ok || !sameJSON(prev, v) {
			changed = append(changed, k)
		}
	}
	for k := range old {
		if _, ok := cur[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// sameJSON compares two encodings ignoring insignificant whitespace.
// Values are held compact in memory but the file is written indented.
func sameJSON(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// Get decodes the value stored under key into dst
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Set writes all values and persists the file once
func (s *Store) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	next := make(map[string]json.RawMessage, len(s.data)+len(values))
	for k, v := range s.data {
		next[k] = v
	}
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to encode %s: %w", k, err)
		}
		next[k] = raw
	}
	if err := s.writeFile(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.data = next
	s.mu.Unlock()

	s.Publish(backend.MapKeys(values))
	return nil
}

// Delete removes keys and persists the file
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	next := make(map[string]json.RawMessage, len(s.data))
	for k, v := range s.data {
		next[k] = v
	}
	for _, k := range keys {
		delete(next, k)
	}
	if err := s.writeFile(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.data = next
	s.mu.Unlock()

	s.Publish(keys)
	return nil
}

// Keys returns all stored keys in sorted order
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close stops watching the file
func (s *Store) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	return nil
}
