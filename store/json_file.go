package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/arthur-debert/nanomodel/identifier"
)

// fileData is the on-disk layout of a JSON file database.
type fileData struct {
	Collections map[string][]map[string]any `json:"collections"`
	Metadata    Metadata                    `json:"metadata"`
}

// Metadata contains storage metadata
type Metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const fileFormatVersion = "1.0"

// Constants for file locking
const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// JSONFile is a Database persisted as a single JSON file. The whole file is
// loaded on open and rewritten atomically (temp file, then rename) after every
// write, under a cross-process lock on "<path>.lock".
type JSONFile struct {
	*database
	path     string
	fs       FileSystem
	fileLock FileLock
	timeFunc func() time.Time
	meta     Metadata
}

// NewJSONFile opens (or prepares to create) the JSON file database at path.
// Identifiers stored as strings are parsed back into native values with ids
// (UUID when nil) on load.
func NewJSONFile(path string, ids identifier.Identifier, opts ...Option) (*JSONFile, error) {
	o := buildOptions(opts)
	db := newDatabase(ids, o.logger)

	s := &JSONFile{
		database: db,
		path:     path,
		fs:       o.fs,
		fileLock: o.lockFactory.New(path + ".lock"),
		timeFunc: o.timeFunc,
	}
	now := s.timeFunc()
	s.meta = Metadata{Version: fileFormatVersion, CreatedAt: now, UpdatedAt: now}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := s.loadWithLock(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	db.persist = s.saveWithLock
	return s, nil
}

// Path returns the database file path.
func (s *JSONFile) Path() string { return s.path }

// Metadata returns the file metadata as of the last load or save.
func (s *JSONFile) Metadata() Metadata {
	var meta Metadata
	_ = s.lm.Execute(ReadOperation, func() error {
		meta = s.meta
		return nil
	})
	return meta
}

// Reload re-reads the file, discarding the in-memory state. Use it to pick up
// writes made by other processes.
func (s *JSONFile) Reload() error {
	return s.lm.Execute(WriteOperation, func() error {
		if s.closed {
			return ErrClosed
		}
		return s.loadWithLock()
	})
}

// Close implements Database.Close
func (s *JSONFile) Close() error {
	return s.close()
}

// acquire takes the file lock, exclusive or shared, with retry logic
func (s *JSONFile) acquire(ctx context.Context, exclusive bool) error {
	for i := 0; i < lockMaxRetries; i++ {
		var (
			locked bool
			err    error
		)
		if exclusive {
			locked, err = s.fileLock.TryLockContext(ctx, lockRetryDelay)
		} else {
			locked, err = s.fileLock.TryRLockContext(ctx, lockRetryDelay)
		}
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}

// loadWithLock loads the data file under a shared lock. Callers hold the
// write side of the LockManager or run before the store is shared.
func (s *JSONFile) loadWithLock() error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	if err := s.acquire(ctx, false); err != nil {
		return err
	}
	defer func() { _ = s.fileLock.Unlock() }()

	return s.load()
}

// load reads the JSON file into memory. Caller must handle locking.
func (s *JSONFile) load() error {
	if _, err := s.fs.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		s.collections = make(map[string][]map[string]any)
		return nil
	}

	raw, err := s.fs.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(raw) == 0 {
		s.collections = make(map[string][]map[string]any)
		return nil
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if data.Collections == nil {
		data.Collections = make(map[string][]map[string]any)
	}
	for name, records := range data.Collections {
		for _, r := range records {
			if rawID, ok := r[IDKey]; ok {
				if id, err := s.ids.Parse(rawID); err == nil {
					r[IDKey] = id
				}
			}
		}
		if records == nil {
			data.Collections[name] = []map[string]any{}
		}
	}

	s.collections = data.Collections
	if data.Metadata.Version != "" {
		s.meta = data.Metadata
	}
	s.logger.Debug("json store loaded", "path", s.path, "collections", len(s.collections))
	return nil
}

// saveWithLock writes the file under an exclusive lock. It runs as the
// database persist hook, so the LockManager write lock is already held.
func (s *JSONFile) saveWithLock() error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	if err := s.acquire(ctx, true); err != nil {
		return err
	}
	defer func() { _ = s.fileLock.Unlock() }()

	return s.save()
}

// save writes the in-memory data to the JSON file. Caller must handle locking.
func (s *JSONFile) save() error {
	meta := s.meta
	meta.UpdatedAt = s.timeFunc()

	data, err := json.MarshalIndent(fileData{Collections: s.collections, Metadata: meta}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to file atomically (write to temp file, then rename)
	tmpFile := s.path + ".tmp"
	if err := s.fs.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := s.fs.Rename(tmpFile, s.path); err != nil {
		_ = s.fs.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	s.meta = meta
	s.logger.Debug("json store saved", "path", s.path, "bytes", len(data))
	return nil
}
