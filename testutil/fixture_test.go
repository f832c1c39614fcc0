package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/arthur-debert/nanomodel/store"
)

func TestLoadLibrary(t *testing.T) {
	ctx := context.Background()
	lib := LoadLibrary(t)

	n, err := lib.Authors.EstimatedCount(ctx)
	if err != nil || n != 3 {
		t.Fatalf("authors = %d, %v", n, err)
	}
	doc, err := lib.Books.FindOne(ctx, store.Query{store.IDKey: KindredID})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc[store.IDKey].(uuid.UUID); !ok {
		t.Errorf("fixture id = %T, want uuid.UUID", doc[store.IDKey])
	}
	AssertKey(t, doc, "title", "Kindred")
	AssertKey(t, doc, "year", float64(1979))
}

func TestRecordingCollection(t *testing.T) {
	ctx := context.Background()
	rec := NewRecordingCollection(store.NewMemory(nil).Collection("things"))

	if _, err := rec.InsertOne(ctx, map[string]any{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.UpdateOne(ctx, store.Query{"a": 1}, store.Update{Set: map[string]any{"a": 2}}); err != nil {
		t.Fatal(err)
	}
	rec.DeleteErr = errors.New("boom")
	if _, err := rec.DeleteOne(ctx, store.Query{}); err == nil {
		t.Error("expected injected error")
	}
	if rec.Writes() != 3 {
		t.Errorf("Writes = %d, want 3", rec.Writes())
	}
	u, ok := rec.LastUpdate()
	if !ok {
		t.Fatal("expected an update")
	}
	AssertData(t, u.Set, map[string]any{"a": 2})
	n, _ := rec.CountDocuments(ctx, store.Query{"a": 2})
	if n != 1 {
		t.Errorf("count = %d", n)
	}
}
