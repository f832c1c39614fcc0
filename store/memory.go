package store

import (
	"github.com/arthur-debert/nanomodel/identifier"
)

// Memory is a Database kept entirely in process memory. It is safe for
// concurrent use.
type Memory struct {
	*database
}

// NewMemory creates an empty in-memory database that generates identifiers
// with ids (UUID when nil).
func NewMemory(ids identifier.Identifier, opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{database: newDatabase(ids, o.logger)}
}

// Close implements Database.Close
func (m *Memory) Close() error {
	return m.close()
}
