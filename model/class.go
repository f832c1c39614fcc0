// Package model binds schemas to a store collection and manages the
// lifecycle of schema-governed documents.
//
// A Class is the shared, read-only description of a document type: its
// collection, active schema, named alternate schemas, strict policy,
// computed append fields and relationships. A Document is one instance with
// working data and the last snapshot known to the store. Save decides between
// insert and update from the document's identity and the diff between the two.
package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/arthur-debert/nanomodel/identifier"
	"github.com/arthur-debert/nanomodel/internal/diff"
	"github.com/arthur-debert/nanomodel/schema"
	"github.com/arthur-debert/nanomodel/store"
)

// AppendFunc computes a derived field. Append fields are kept in the working
// data but never validated, diffed or persisted.
type AppendFunc func(d *Document) any

// Class describes a document type. It must not be modified after the first
// document is created.
type Class struct {
	name          string
	coll          store.Collection
	ids           identifier.Identifier
	builder       schema.Builder
	source        schema.Source
	schemas       map[string]schema.Source
	strict        schema.StrictMode
	appends       map[string]AppendFunc
	relationships map[string]Relationship
	logger        *slog.Logger

	mu       sync.Mutex
	resolved map[string]schema.Fields
}

// ClassOption configures a Class.
type ClassOption func(*Class)

// WithSchema sets the schema applied to every new or hydrated document.
func WithSchema(src schema.Source) ClassOption {
	return func(c *Class) {
		c.source = src
	}
}

// WithNamedSchema registers an alternate schema that documents can switch to
// with ApplySchema(Named(name)).
func WithNamedSchema(name string, src schema.Source) ClassOption {
	return func(c *Class) {
		c.schemas[name] = src
	}
}

// WithStrict sets the policy for fields outside the active schema.
func WithStrict(mode schema.StrictMode) ClassOption {
	return func(c *Class) {
		c.strict = mode
	}
}

// WithAppend declares a computed field.
func WithAppend(name string, fn AppendFunc) ClassOption {
	return func(c *Class) {
		c.appends[name] = fn
	}
}

// WithRelationship declares a relationship loadable with Document.Load.
func WithRelationship(name string, rel Relationship) ClassOption {
	return func(c *Class) {
		c.relationships[name] = rel
	}
}

// WithHasOne declares a hasOne relationship.
func WithHasOne(name string, related *Class, where map[string]string, opts RelationshipOptions) ClassOption {
	return WithRelationship(name, Relationship{
		Type:    HasOne,
		Model:   related,
		Where:   where,
		Options: opts,
	})
}

// WithIdentifier sets the identifier scheme used to parse document ids and
// to build Identifier fields. Defaults to UUID.
func WithIdentifier(ids identifier.Identifier) ClassOption {
	return func(c *Class) {
		c.ids = ids
	}
}

// WithLogger sets the logger used for debug output. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ClassOption {
	return func(c *Class) {
		c.logger = logger
	}
}

// NewClass creates a document class stored in coll.
func NewClass(name string, coll store.Collection, opts ...ClassOption) *Class {
	c := &Class{
		name:          name,
		coll:          coll,
		schemas:       make(map[string]schema.Source),
		appends:       make(map[string]AppendFunc),
		relationships: make(map[string]Relationship),
		resolved:      make(map[string]schema.Fields),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ids == nil {
		c.ids = identifier.NewUUID()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.builder = schema.NewBuilder(c.ids)
	return c
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Collection returns the backing collection.
func (c *Class) Collection() store.Collection { return c.coll }

// Identifier returns the identifier scheme.
func (c *Class) Identifier() identifier.Identifier { return c.ids }

// Strict returns the strict policy.
func (c *Class) Strict() schema.StrictMode { return c.strict }

// Fields resolves the class schema.
func (c *Class) Fields() (schema.Fields, error) {
	if c.source == nil {
		return schema.Fields{}, nil
	}
	return c.cached("", c.source)
}

// SchemaNames returns the registered alternate schema names, sorted.
func (c *Class) SchemaNames() []string {
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolve turns a schema source into fields. Named sources are looked up in
// the class schema store.
func (c *Class) resolve(src schema.Source) (schema.Fields, error) {
	switch s := src.(type) {
	case nil:
		return schema.Fields{}, nil
	case Named:
		named, ok := c.schemas[string(s)]
		if !ok {
			return nil, newUnknownSchemaError(string(s))
		}
		return c.cached("named:"+string(s), named)
	}
	return resolveSource(src, c.builder)
}

// cached resolves a class-owned source once and shares the result with every
// document of the class.
func (c *Class) cached(key string, src schema.Source) (schema.Fields, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fields, ok := c.resolved[key]; ok {
		return fields, nil
	}
	fields, err := resolveSource(src, c.builder)
	if err != nil {
		return nil, err
	}
	c.resolved[key] = fields
	return fields, nil
}

func resolveSource(src schema.Source, b schema.Builder) (schema.Fields, error) {
	fields, err := src.Resolve(b)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema: %w", err)
	}
	if fields == nil {
		fields = schema.Fields{}
	}
	return fields, nil
}

func (c *Class) appendNames() []string {
	names := make([]string, 0, len(c.appends))
	for name := range c.appends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an unpersisted document from data. A non-nil "_id" in data is
// parsed as a caller-chosen identifier, so the first Save inserts with it.
func (c *Class) New(data map[string]any) (*Document, error) {
	d := newDocument(c, diff.CopyMap(data))
	if id, ok := d.data[store.IDKey]; ok {
		delete(d.data, store.IDKey)
		if id != nil {
			if err := d.SetID(id); err != nil {
				return nil, err
			}
		}
	}
	if err := d.applyClassSchema(); err != nil {
		return nil, err
	}
	d.populateAppends()
	return d, nil
}

// Hydrate wraps a record read from the store. The record becomes the
// document's original snapshot, and defaults filled in for fields the record
// lacks count as part of it, so they are not saved back as changes. A record
// without an identifier is addressed by its own content.
func (c *Class) Hydrate(raw map[string]any) (*Document, error) {
	return c.hydrate(raw, nil, nil)
}

// hydrate wraps raw as read with findQuery and projection. Fields the
// projection left out are neither defaulted nor written back.
func (c *Class) hydrate(raw map[string]any, findQuery store.Query, projection map[string]bool) (*Document, error) {
	d := newDocument(c, diff.CopyMap(raw))
	d.original = diff.CopyMap(raw)
	d.meta.projection = projection
	if id, ok := d.data[store.IDKey]; ok && id != nil {
		if parsed, err := c.ids.Parse(id); err == nil {
			d.data[store.IDKey] = parsed
			d.original[store.IDKey] = parsed
		}
	} else {
		if findQuery == nil {
			findQuery = store.Query(diff.CopyMap(raw))
		}
		d.meta.findQuery = findQuery
	}
	fields, err := c.Fields()
	if err != nil {
		return nil, err
	}
	d.applyStored(fields)
	d.populateAppends()
	return d, nil
}

// Find returns the documents matching q.
func (c *Class) Find(ctx context.Context, q store.Query, opts ...store.FindOptions) ([]*Document, error) {
	records, err := c.coll.Find(ctx, q, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s documents: %w", c.name, err)
	}
	projection := projectionOf(opts)
	docs := make([]*Document, 0, len(records))
	for _, r := range records {
		d, err := c.hydrate(r, nil, projection)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// FindOne returns the first document matching q. The error wraps
// store.ErrNotFound when nothing matches. A record projected without its
// identifier keeps q as its identity query.
func (c *Class) FindOne(ctx context.Context, q store.Query, opts ...store.FindOptions) (*Document, error) {
	raw, err := c.coll.FindOne(ctx, q, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s document: %w", c.name, err)
	}
	return c.hydrate(raw, store.Query(diff.CopyMap(q)), projectionOf(opts))
}

// FindByID returns the document with the given identifier.
func (c *Class) FindByID(ctx context.Context, id any) (*Document, error) {
	parsed, err := c.ids.Parse(id)
	if err != nil {
		return nil, schema.NewCastError(store.IDKey, err)
	}
	return c.FindOne(ctx, store.Query{store.IDKey: parsed})
}

// Count returns the number of documents matching q.
func (c *Class) Count(ctx context.Context, q store.Query) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s documents: %w", c.name, err)
	}
	return n, nil
}

// projectionOf returns the projection the store applies for opts: the last
// non-empty one.
func projectionOf(opts []store.FindOptions) map[string]bool {
	var projection map[string]bool
	for _, o := range opts {
		if len(o.Projection) > 0 {
			projection = o.Projection
		}
	}
	if projection == nil {
		return nil
	}
	out := make(map[string]bool, len(projection))
	for k, v := range projection {
		out[k] = v
	}
	return out
}
