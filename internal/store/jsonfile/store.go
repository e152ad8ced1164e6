// Package jsonfile provides a JSON file backed device storage.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/hay-kot/reactions/internal/core/kv"
)

// document is the root JSON structure stored on disk.
type document struct {
	Entries map[string]kv.Entry `json:"entries"`
}

// Store implements kv.Store using a single JSON file. Writes go through a
// temp file and rename; concurrent processes are serialised with flock.
type Store struct {
	path string
	mu   sync.RWMutex
}

// New creates a store persisted at path. The file and its directory are
// created on first write.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Get returns an entry by key. Returns kv.ErrKeyNotFound if not found.
func (s *Store) Get(ctx context.Context, key string) (kv.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		entry kv.Entry
		found bool
	)
	err := s.locked(syscall.LOCK_SH, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}
		entry, found = doc.Entries[key]
		return nil
	})
	if err != nil {
		return kv.Entry{}, err
	}
	if !found {
		return kv.Entry{}, kv.ErrKeyNotFound
	}
	return entry, nil
}

// Set creates or updates an entry, preserving CreatedAt on update.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.locked(syscall.LOCK_EX, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}

		now := time.Now()
		entry, ok := doc.Entries[key]
		if !ok {
			entry = kv.Entry{Key: key, CreatedAt: now}
		}
		entry.Value = value
		entry.UpdatedAt = now
		doc.Entries[key] = entry

		return s.save(doc)
	})
}

// Delete removes an entry by key. Returns kv.ErrKeyNotFound if not found.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing bool
	err := s.locked(syscall.LOCK_EX, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}
		if _, ok := doc.Entries[key]; !ok {
			missing = true
			return nil
		}
		delete(doc.Entries, key)
		return s.save(doc)
	})
	if err != nil {
		return err
	}
	if missing {
		return kv.ErrKeyNotFound
	}
	return nil
}

// locked runs fn while holding a file lock of the given type on a sibling
// .lock file.
func (s *Store) locked(how int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// load reads the document from disk. A missing or empty file is an empty
// document.
func (s *Store) load() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return document{Entries: map[string]kv.Entry{}}, nil
		}
		return document{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	doc := document{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return document{}, fmt.Errorf("parse %s: %w", s.path, err)
		}
	}
	if doc.Entries == nil {
		doc.Entries = map[string]kv.Entry{}
	}
	return doc, nil
}

// save writes the document atomically.
func (s *Store) save(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp) // best effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
