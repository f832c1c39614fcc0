package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/arthur-debert/nanomodel/model"
	"github.com/arthur-debert/nanomodel/schema"
	"github.com/arthur-debert/nanomodel/store"
	"github.com/arthur-debert/nanomodel/testutil"
)

func TestNewAppliesDefaultsAndDefersRequired(t *testing.T) {
	c := model.NewClass("Person", store.NewMemory(nil).Collection("people"),
		model.WithSchema(schema.Func(func(b schema.Builder) schema.Fields {
			return schema.Fields{
				"age":  b.Number(schema.Required()),
				"name": b.String(schema.Default("anon")),
			}
		})))

	d := mustNew(t, c, nil)
	testutil.AssertData(t, d.Data(), map[string]any{"name": "anon"})

	_, err := d.Validate()
	testutil.AssertFieldError(t, err, schema.ErrRequired, "age")
}

func TestApplySchemaIsIdempotent(t *testing.T) {
	calls := 0
	src := schema.Func(func(b schema.Builder) schema.Fields {
		return schema.Fields{
			"name":    b.String(schema.Default("anon")),
			"created": b.Date(schema.Default(func() any { calls++; return time.Unix(int64(calls), 0) })),
			"tags":    b.Array(schema.Default([]any{"new"})),
			"note":    b.String(),
			"age":     b.Number(schema.Required()),
		}
	})
	c := model.NewClass("Thing", store.NewMemory(nil).Collection("things"), model.WithSchema(src))

	d := mustNew(t, c, map[string]any{"note": nil, "extra": 1})
	first := d.Data()
	if err := d.ApplySchema(src); err != nil {
		t.Fatal(err)
	}
	testutil.AssertData(t, d.Data(), first, "after second application")
	testutil.AssertNoKey(t, first, "note")
	testutil.AssertNoKey(t, first, "age")
	testutil.AssertKey(t, first, "extra", 1)
	if calls != 1 {
		t.Errorf("producer called %d times, want 1", calls)
	}
}

func TestApplySchemaKeepsRequiredNil(t *testing.T) {
	c := model.NewClass("Thing", store.NewMemory(nil).Collection("things"),
		model.WithSchema(schema.Func(func(b schema.Builder) schema.Fields {
			return schema.Fields{"age": b.Number(schema.Required())}
		})))
	d := mustNew(t, c, map[string]any{"age": nil})
	if v, ok := d.Get("age"); !ok || v != nil {
		t.Errorf("age = %v, %v; want an explicit nil", v, ok)
	}
	_, err := d.Validate()
	testutil.AssertFieldError(t, err, schema.ErrRequired, "age")
}

func TestDefaultsAreNotShared(t *testing.T) {
	c := model.NewClass("Thing", store.NewMemory(nil).Collection("things"),
		model.WithSchema(schema.Func(func(b schema.Builder) schema.Fields {
			return schema.Fields{"meta": b.Object(schema.Default(map[string]any{"n": 1}))}
		})))
	a := mustNew(t, c, nil)
	b := mustNew(t, c, nil)
	a.Set("meta.n", 2)
	if v, _ := b.Get("meta.n"); v != 1 {
		t.Errorf("default object shared between documents: %v", v)
	}
}

func TestNamedSchemas(t *testing.T) {
	guest := schema.Func(func(b schema.Builder) schema.Fields {
		return schema.Fields{"nickname": b.String(schema.Default("guest"))}
	})
	c, _ := newPeople(t, model.WithNamedSchema("guest", guest))

	d := mustNew(t, c, map[string]any{"username": "alice"})
	if err := d.ApplySchema(model.Named("guest")); err != nil {
		t.Fatal(err)
	}
	testutil.AssertKey(t, d.Data(), "nickname", "guest")
	if _, ok := d.Schema()["username"]; ok {
		t.Error("named schema should replace the active schema")
	}
	if len(d.UniqueFields()) != 0 {
		t.Errorf("unique fields = %v, want none", d.UniqueFields())
	}

	err := d.ApplySchema(model.Named("admin"))
	if !errors.Is(err, model.ErrUnknownSchema) {
		t.Errorf("error = %v, want ErrUnknownSchema", err)
	}
	if got := c.SchemaNames(); len(got) != 1 || got[0] != "guest" {
		t.Errorf("SchemaNames = %v", got)
	}
}

func TestDefinitionSource(t *testing.T) {
	def := schema.Definition{
		"title":  {Type: "string", Required: true},
		"status": {Type: "enum", Values: []any{"draft", "published"}, Default: "draft"},
	}
	c := model.NewClass("Post", store.NewMemory(nil).Collection("posts"), model.WithSchema(def))

	d := mustNew(t, c, map[string]any{"title": "hello"})
	testutil.AssertData(t, d.Data(), map[string]any{"title": "hello", "status": "draft"})

	d.Set("status", "archived")
	_, err := d.Validate()
	testutil.AssertFieldError(t, err, schema.ErrValidation, "status")
}
