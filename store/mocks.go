package store

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MockFileSystem is an in-memory FileSystem for tests. The *Error fields,
// when set, are returned by the corresponding operation.
type MockFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte

	StatError      error
	ReadFileError  error
	WriteFileError error
	RenameError    error
	RemoveError    error

	// Writes counts successful WriteFile calls.
	Writes int
}

// NewMockFileSystem creates an empty mock file system.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{files: make(map[string][]byte)}
}

type mockFileInfo struct {
	name string
	size int64
}

func (fi mockFileInfo) Name() string       { return fi.name }
func (fi mockFileInfo) Size() int64        { return fi.size }
func (fi mockFileInfo) Mode() fs.FileMode  { return 0644 }
func (fi mockFileInfo) ModTime() time.Time { return time.Time{} }
func (fi mockFileInfo) IsDir() bool        { return false }
func (fi mockFileInfo) Sys() interface{}   { return nil }

// Stat implements FileSystem.Stat
func (m *MockFileSystem) Stat(name string) (fs.FileInfo, error) {
	if m.StatError != nil {
		return nil, m.StatError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return mockFileInfo{name: filepath.Base(name), size: int64(len(content))}, nil
}

// ReadFile implements FileSystem.ReadFile
func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if m.ReadFileError != nil {
		return nil, m.ReadFileError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return append([]byte(nil), content...), nil
}

// WriteFile implements FileSystem.WriteFile
func (m *MockFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if m.WriteFileError != nil {
		return m.WriteFileError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	m.Writes++
	return nil
}

// Rename implements FileSystem.Rename
func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	if m.RenameError != nil {
		return m.RenameError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[oldpath]
	if !ok {
		return os.ErrNotExist
	}
	m.files[newpath] = content
	delete(m.files, oldpath)
	return nil
}

// Remove implements FileSystem.Remove
func (m *MockFileSystem) Remove(name string) error {
	if m.RemoveError != nil {
		return m.RemoveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return os.ErrNotExist
	}
	delete(m.files, name)
	return nil
}

// MkdirAll implements FileSystem.MkdirAll. Directories are implicit.
func (m *MockFileSystem) MkdirAll(string, fs.FileMode) error {
	return nil
}

// Content returns a copy of a file's content.
func (m *MockFileSystem) Content(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[name]
	return append([]byte(nil), content...), ok
}

// SetContent replaces a file's content.
func (m *MockFileSystem) SetContent(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
}

// MockFileLock records lock usage for tests.
type MockFileLock struct {
	mu        sync.Mutex
	held      bool
	LockErr   error
	Exclusive int
	Shared    int
	Unlocks   int
}

// TryLockContext implements FileLock.TryLockContext
func (l *MockFileLock) TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error) {
	return l.acquire(&l.Exclusive)
}

// TryRLockContext implements FileLock.TryRLockContext
func (l *MockFileLock) TryRLockContext(ctx context.Context, retryInterval time.Duration) (bool, error) {
	return l.acquire(&l.Shared)
}

func (l *MockFileLock) acquire(counter *int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LockErr != nil {
		return false, l.LockErr
	}
	if l.held {
		return false, nil
	}
	l.held = true
	*counter++
	return true, nil
}

// Unlock implements FileLock.Unlock
func (l *MockFileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.Unlocks++
	return nil
}

// Held reports whether the lock is currently held.
func (l *MockFileLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// MockFileLockFactory hands out one MockFileLock per path.
type MockFileLockFactory struct {
	mu    sync.Mutex
	locks map[string]*MockFileLock
}

// NewMockFileLockFactory creates a new mock factory
func NewMockFileLockFactory() *MockFileLockFactory {
	return &MockFileLockFactory{locks: make(map[string]*MockFileLock)}
}

// New implements FileLockFactory.New
func (f *MockFileLockFactory) New(path string) FileLock {
	return f.Lock(path)
}

// Lock returns the mock lock for path, creating it if needed.
func (f *MockFileLockFactory) Lock(path string) *MockFileLock {
	f.mu.Lock()
	defer f.mu.Unlock()
	lock, ok := f.locks[path]
	if !ok {
		lock = &MockFileLock{}
		f.locks[path] = lock
	}
	return lock
}
