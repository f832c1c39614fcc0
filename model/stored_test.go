package model_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arthur-debert/nanomodel/model"
	"github.com/arthur-debert/nanomodel/schema"
	"github.com/arthur-debert/nanomodel/store"
	"github.com/arthur-debert/nanomodel/testutil"
)

func TestStoredDefaultsAreNotChanges(t *testing.T) {
	ctx := context.Background()
	c, rec := newPeople(t)
	if _, err := rec.InsertOne(ctx, map[string]any{"username": "bob"}); err != nil {
		t.Fatal(err)
	}
	writes := rec.Writes()

	found, err := c.FindOne(ctx, store.Query{"username": "bob"})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertKey(t, found.Data(), "role", "member")
	if changes := found.Changes(); len(changes) != 0 {
		t.Errorf("Changes = %v, want none", changes)
	}
	mustSave(t, found, model.NoChanges)

	docs, err := c.Find(ctx, store.Query{})
	if err != nil || len(docs) != 1 {
		t.Fatalf("Find = %v, %v", docs, err)
	}
	mustSave(t, docs[0], model.NoChanges)

	if err := found.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	mustSave(t, found, model.NoChanges)

	if rec.Writes() != writes {
		t.Errorf("store writes = %d, want %d", rec.Writes(), writes)
	}
}

func TestProjectedFieldsKeepStoredValues(t *testing.T) {
	ctx := context.Background()

	t.Run("inclusive projection", func(t *testing.T) {
		c, rec := newPeople(t)
		mustSave(t, mustNew(t, c, map[string]any{"username": "alice", "role": "admin"}), model.Inserted)

		d, err := c.FindOne(ctx, store.Query{"username": "alice"},
			store.FindOptions{Projection: map[string]bool{"username": true, "age": true}})
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertNoKey(t, d.Data(), "role")

		d.Set("age", 31)
		mustSave(t, d, model.Updated)
		u, _ := rec.LastUpdate()
		testutil.AssertData(t, u.Set, map[string]any{"age": 31})

		raw, err := rec.FindOne(ctx, store.Query{"username": "alice"})
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertKey(t, raw, "role", "admin")
	})

	t.Run("exclusive projection", func(t *testing.T) {
		c, rec := newPeople(t)
		mustSave(t, mustNew(t, c, map[string]any{"username": "carol", "role": "owner"}), model.Inserted)

		docs, err := c.Find(ctx, store.Query{},
			store.FindOptions{Projection: map[string]bool{"role": false}})
		if err != nil || len(docs) != 1 {
			t.Fatalf("Find = %v, %v", docs, err)
		}
		testutil.AssertNoKey(t, docs[0].Data(), "role")
		mustSave(t, docs[0], model.NoChanges)

		raw, err := rec.FindOne(ctx, store.Query{"username": "carol"})
		if err != nil {
			t.Fatal(err)
		}
		testutil.AssertKey(t, raw, "role", "owner")
	})
}

func TestCastValuesSettleAfterUpdate(t *testing.T) {
	c := model.NewClass("Event", store.NewMemory(nil).Collection("events"),
		model.WithSchema(schema.Func(func(b schema.Builder) schema.Fields {
			return schema.Fields{
				"at":  b.Date(),
				"ref": b.Identifier(),
			}
		})))

	d := mustNew(t, c, map[string]any{})
	mustSave(t, d, model.Inserted)

	ref := uuid.New()
	d.Set("at", "2024-01-02T03:04:05Z")
	d.Set("ref", ref.String())
	mustSave(t, d, model.Updated)
	mustSave(t, d, model.NoChanges)

	at, _ := d.Get("at")
	if _, ok := at.(time.Time); !ok {
		t.Errorf("at = %T, want time.Time", at)
	}
	testutil.AssertKey(t, d.Data(), "ref", ref)
}

func TestUniqueByKeepsIdentifierCondition(t *testing.T) {
	ctx := context.Background()
	reserved := uuid.New()
	// Only the reserved record claims emails.
	claimed := func(field string, value any) map[string]any {
		return map[string]any{field: value, store.IDKey: map[string]any{"$in": []any{reserved}}}
	}
	c := model.NewClass("User", store.NewMemory(nil).Collection("users"),
		model.WithSchema(schema.Func(func(b schema.Builder) schema.Fields {
			return schema.Fields{"email": b.String(schema.UniqueBy(claimed))}
		})))

	mustSave(t, mustNew(t, c, map[string]any{store.IDKey: reserved, "email": "root@x.io"}), model.Inserted)
	mustSave(t, mustNew(t, c, map[string]any{"email": "a@x.io"}), model.Inserted)

	d := mustNew(t, c, map[string]any{"email": "b@x.io"})
	mustSave(t, d, model.Inserted)

	d.Set("email", "a@x.io")
	mustSave(t, d, model.Updated)

	d.Set("email", "root@x.io")
	_, err := d.Save(ctx)
	testutil.AssertErrorIs(t, err, model.ErrUniqueness)
}
