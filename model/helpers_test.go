package model_test

import (
	"context"
	"testing"

	"github.com/arthur-debert/nanomodel/model"
	"github.com/arthur-debert/nanomodel/schema"
	"github.com/arthur-debert/nanomodel/store"
	"github.com/arthur-debert/nanomodel/testutil"
)

// peopleSchema is the schema used by most model tests.
var peopleSchema = schema.Func(func(b schema.Builder) schema.Fields {
	return schema.Fields{
		"username": b.String(schema.Required(), schema.Unique()),
		"age":      b.Number(),
		"role":     b.String(schema.Default("member")),
		"address":  b.Object(),
	}
})

func newPeople(t *testing.T, opts ...model.ClassOption) (*model.Class, *testutil.RecordingCollection) {
	t.Helper()
	db := store.NewMemory(nil)
	t.Cleanup(func() { _ = db.Close() })
	rec := testutil.NewRecordingCollection(db.Collection("people"))
	opts = append([]model.ClassOption{model.WithSchema(peopleSchema)}, opts...)
	return model.NewClass("Person", rec, opts...), rec
}

func mustNew(t *testing.T, c *model.Class, data map[string]any) *model.Document {
	t.Helper()
	d, err := c.New(data)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func mustSave(t *testing.T, d *model.Document, want model.SaveResult) {
	t.Helper()
	got, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got != want {
		t.Fatalf("Save = %v, want %v", got, want)
	}
}
