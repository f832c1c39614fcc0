package model

import (
	"strings"

	"github.com/arthur-debert/nanomodel/internal/diff"
	"github.com/arthur-debert/nanomodel/schema"
	"github.com/arthur-debert/nanomodel/store"
)

// Named refers to a schema registered on the class with WithNamedSchema.
type Named string

// Resolve implements schema.Source. Named schemas only resolve through the
// class that registered them, so calling it directly always fails.
func (n Named) Resolve(schema.Builder) (schema.Fields, error) {
	return nil, newUnknownSchemaError(string(n))
}

// ApplySchema makes src the document's active schema and merges it into the
// working data. Each field takes its current value, or its default when the
// current value is undefined. Optional fields that stay undefined are left
// out; required ones are left for validation to report. Fields outside the
// schema are kept unless the class strict policy removes them.
//
// Applying the same schema again changes nothing.
func (d *Document) ApplySchema(src schema.Source) error {
	fields, err := d.class.resolve(src)
	if err != nil {
		return err
	}
	d.apply(fields)
	return nil
}

func (d *Document) applyClassSchema() error {
	fields, err := d.class.Fields()
	if err != nil {
		return err
	}
	d.apply(fields)
	return nil
}

func (d *Document) apply(fields schema.Fields) {
	for _, name := range fields.Names() {
		if d.meta.hidden(name) {
			continue
		}
		desc := fields[name]
		value, present := d.data[name]
		if value == nil {
			if def, ok := desc.DefaultValue(); ok {
				value = def
			}
		}
		switch {
		case value != nil:
			d.data[name] = value
		case present && !desc.IsRequired(d):
			delete(d.data, name)
		}
	}

	if d.class.strict == schema.StrictRemove {
		exempt := make(map[string]bool)
		for _, key := range d.exempt() {
			exempt[key] = true
		}
		for key := range d.data {
			if _, ok := fields[key]; ok || key == store.IDKey || exempt[key] || strings.Contains(key, ".") {
				continue
			}
			delete(d.data, key)
		}
	}

	d.fields = fields
	d.unique = fields.Unique()
}

// applyStored applies fields to data just read from the store. Schema
// fields the record left undefined take their applied state in the snapshot
// too, so defaults are not reported as changes.
func (d *Document) applyStored(fields schema.Fields) {
	d.apply(fields)
	for name := range fields {
		if v, ok := d.original[name]; ok && v != nil {
			continue
		}
		if v, ok := d.data[name]; ok {
			d.original[name] = diff.Copy(v)
		} else {
			delete(d.original, name)
		}
	}
}

// Validate runs the full validation pipeline over the persistable working
// data and returns the validated, cast payload. Under StrictRemove the
// non-schema fields are also removed from the working data.
func (d *Document) Validate() (map[string]any, error) {
	return d.validate(d.persistable(d.data), false)
}

// ValidatePartial validates only the schema fields present in payload.
// Payload keys removed under StrictRemove are deleted from payload and from
// the working data.
func (d *Document) ValidatePartial(payload map[string]any) (map[string]any, error) {
	return d.validate(payload, true)
}

func (d *Document) validate(payload map[string]any, partial bool) (map[string]any, error) {
	return schema.Validate(d.fields, payload, schema.ValidateOptions{
		Owner:   d,
		Partial: partial,
		Strict:  d.class.strict,
		IDKey:   store.IDKey,
		Exempt:  d.exempt(),
		OnRemove: func(key string) {
			delete(d.data, key)
		},
	})
}
