// Package identifier provides the native document identifiers used by
// nanomodel stores and documents.
//
// An Identifier knows how to recognise, parse and generate the identifier
// values a store uses for its reserved "_id" field. Two implementations are
// provided: UUID (the default, backed by github.com/google/uuid) and NanoID
// (short URL-safe strings backed by github.com/matoous/go-nanoid/v2).
package identifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrInvalid is returned (wrapped) by Parse when a value cannot be converted
// into a native identifier.
var ErrInvalid = errors.New("invalid identifier")

// Identifier parses and generates native document identifiers.
type Identifier interface {
	// Name returns a short name for the identifier kind ("uuid", "nanoid").
	Name() string

	// IsValid reports whether v already is a valid native identifier.
	IsValid(v any) bool

	// Parse converts v into a native identifier. Strings are parsed, native
	// values are returned as-is. Failures wrap ErrInvalid.
	Parse(v any) (any, error)

	// Generate returns a fresh native identifier.
	Generate() any
}

// UUID uses uuid.UUID values as native identifiers.
type UUID struct{}

// NewUUID returns the UUID identifier.
func NewUUID() UUID { return UUID{} }

// Name implements Identifier.Name
func (UUID) Name() string { return "uuid" }

// IsValid implements Identifier.IsValid
func (UUID) IsValid(v any) bool {
	switch id := v.(type) {
	case uuid.UUID:
		return id != uuid.Nil
	case *uuid.UUID:
		return id != nil && *id != uuid.Nil
	}
	return false
}

// Parse implements Identifier.Parse
func (u UUID) Parse(v any) (any, error) {
	switch id := v.(type) {
	case uuid.UUID:
		if id == uuid.Nil {
			return nil, fmt.Errorf("%w: nil uuid", ErrInvalid)
		}
		return id, nil
	case *uuid.UUID:
		if !u.IsValid(id) {
			return nil, fmt.Errorf("%w: nil uuid", ErrInvalid)
		}
		return *id, nil
	case string:
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalid, id, err)
		}
		return parsed, nil
	case []byte:
		parsed, err := uuid.ParseBytes(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalid, string(id), err)
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalid, v)
}

// Generate implements Identifier.Generate
func (UUID) Generate() any { return uuid.New() }

// Default nanoid parameters, matching the reference nanoid implementation.
const (
	DefaultNanoIDAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	DefaultNanoIDSize     = 21
)

// NanoID uses fixed-length strings drawn from an alphabet as native
// identifiers.
type NanoID struct {
	Alphabet string
	Size     int
}

// NewNanoID returns a NanoID identifier with the default alphabet and size.
func NewNanoID() NanoID {
	return NanoID{Alphabet: DefaultNanoIDAlphabet, Size: DefaultNanoIDSize}
}

// Name implements Identifier.Name
func (NanoID) Name() string { return "nanoid" }

// IsValid implements Identifier.IsValid
func (n NanoID) IsValid(v any) bool {
	s, ok := v.(string)
	if !ok || len(s) != n.size() {
		return false
	}
	alphabet := n.alphabet()
	for _, r := range s {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}

// Parse implements Identifier.Parse
func (n NanoID) Parse(v any) (any, error) {
	if !n.IsValid(v) {
		return nil, fmt.Errorf("%w: %v is not a %d character nanoid", ErrInvalid, v, n.size())
	}
	return v, nil
}

// Generate implements Identifier.Generate
func (n NanoID) Generate() any {
	id, err := gonanoid.Generate(n.alphabet(), n.size())
	if err != nil {
		// Generate only fails for an invalid alphabet or size, which
		// alphabet() and size() rule out.
		panic(fmt.Sprintf("nanoid generation failed: %v", err))
	}
	return id
}

func (n NanoID) alphabet() string {
	if n.Alphabet == "" {
		return DefaultNanoIDAlphabet
	}
	return n.Alphabet
}

func (n NanoID) size() int {
	if n.Size <= 0 {
		return DefaultNanoIDSize
	}
	return n.Size
}

// ByName returns the identifier registered under name ("uuid" or "nanoid").
func ByName(name string) (Identifier, error) {
	switch name {
	case "", "uuid":
		return NewUUID(), nil
	case "nanoid":
		return NewNanoID(), nil
	}
	return nil, fmt.Errorf("unknown identifier kind %q (expected uuid or nanoid)", name)
}
