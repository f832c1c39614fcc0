package store

import (
	"log/slog"
	"time"
)

// Option configures a database created by NewMemory or NewJSONFile.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	fs          FileSystem
	lockFactory FileLockFactory
	timeFunc    func() time.Time
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.fs == nil {
		o.fs = OSFileSystem{}
	}
	if o.lockFactory == nil {
		o.lockFactory = FlockFactory{}
	}
	if o.timeFunc == nil {
		o.timeFunc = time.Now
	}
	return o
}

// WithLogger sets the logger used for debug output. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFileSystem sets a custom FileSystem implementation (JSON file store only)
func WithFileSystem(fs FileSystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithFileLockFactory sets a custom FileLockFactory implementation (JSON file
// store only)
func WithFileLockFactory(factory FileLockFactory) Option {
	return func(o *options) {
		o.lockFactory = factory
	}
}

// WithTimeFunc sets a custom time function for file metadata timestamps
func WithTimeFunc(fn func() time.Time) Option {
	return func(o *options) {
		o.timeFunc = fn
	}
}
