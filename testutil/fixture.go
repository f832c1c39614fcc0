// Package testutil provides fixtures and assertion helpers shared by the
// nanomodel test suites.
package testutil

import (
	"context"
	_ "embed"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/arthur-debert/nanomodel/identifier"
	"github.com/arthur-debert/nanomodel/store"
)

//go:embed testdata/library.json
var libraryJSON []byte

// Fixture identifiers from testdata/library.json.
var (
	LeGuinID  = uuid.MustParse("8f0c6d0e-6a5c-4c1e-9b7a-1d2f3e4a5b6c")
	ButlerID  = uuid.MustParse("1b2c3d4e-5f60-4a7b-8c9d-0e1f2a3b4c5d")
	ChiangID  = uuid.MustParse("9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d")
	KindredID = uuid.MustParse("2e3f4a5b-6c7d-4e8f-9a0b-1c2d3e4f5a6b")
	OrphanID  = uuid.MustParse("4a5b6c7d-8e9f-4a0b-9c1d-2e3f4a5b6c7d")
)

// Library is a memory database seeded with the library fixture.
type Library struct {
	DB      *store.Memory
	Authors store.Collection
	Books   store.Collection
}

// LoadLibrary returns a fresh memory database holding the "authors" and
// "books" collections of the library fixture. Identifiers are parsed to
// uuid.UUID; numbers decode as float64 as they would from a JSON file store.
func LoadLibrary(t *testing.T) *Library {
	t.Helper()

	var fixture map[string][]map[string]any
	if err := json.Unmarshal(libraryJSON, &fixture); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	ids := identifier.NewUUID()
	db := store.NewMemory(ids)
	t.Cleanup(func() { _ = db.Close() })

	for name, records := range fixture {
		SeedCollection(t, db.Collection(name), records, ids)
	}
	return &Library{
		DB:      db,
		Authors: db.Collection("authors"),
		Books:   db.Collection("books"),
	}
}

// SeedCollection inserts records into coll, parsing "_id" values with ids
// when given.
func SeedCollection(t *testing.T, coll store.Collection, records []map[string]any, ids identifier.Identifier) {
	t.Helper()
	ctx := context.Background()
	for _, r := range records {
		if raw, ok := r[store.IDKey]; ok && ids != nil {
			id, err := ids.Parse(raw)
			if err != nil {
				t.Fatalf("fixture id %v: %v", raw, err)
			}
			r[store.IDKey] = id
		}
		if _, err := coll.InsertOne(ctx, r); err != nil {
			t.Fatalf("failed to seed %s: %v", coll.Name(), err)
		}
	}
}
