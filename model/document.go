package model

import (
	"github.com/arthur-debert/nanomodel/internal/diff"
	"github.com/arthur-debert/nanomodel/schema"
	"github.com/arthur-debert/nanomodel/store"
)

// Change is one changed leaf path between a document's original snapshot and
// its working data.
type Change = diff.Change

// ChangeKind classifies a Change.
type ChangeKind = diff.Kind

// Change kinds.
const (
	Added    = diff.Added
	Modified = diff.Modified
	Removed  = diff.Removed
)

type documentMeta struct {
	// usingCustomID is set while a caller-chosen identifier awaits its first
	// insert.
	usingCustomID bool

	// findQuery addresses a document loaded without its identifier.
	findQuery store.Query

	// projection is the projection the document was read with, if any.
	projection map[string]bool
}

// hidden reports whether the read projection left the top-level field out.
func (m documentMeta) hidden(field string) bool {
	if len(m.projection) == 0 {
		return false
	}
	inclusive := false
	for path, keep := range m.projection {
		if !keep || path == store.IDKey {
			continue
		}
		inclusive = true
		if diff.Root(path) == field {
			return false
		}
	}
	if inclusive {
		return field != store.IDKey
	}
	keep, listed := m.projection[field]
	return listed && !keep
}

// Document is one schema-governed record. It is not safe for concurrent use.
type Document struct {
	class    *Class
	data     map[string]any
	original map[string]any
	fields   schema.Fields
	unique   []string
	loaded   map[string]bool
	meta     documentMeta
	deleted  bool
}

func newDocument(c *Class, data map[string]any) *Document {
	if data == nil {
		data = make(map[string]any)
	}
	return &Document{
		class:    c,
		data:     data,
		original: make(map[string]any),
		fields:   schema.Fields{},
		loaded:   make(map[string]bool),
	}
}

// Class returns the document's class.
func (d *Document) Class() *Class { return d.class }

// Get returns the working value at a dotted path.
func (d *Document) Get(path string) (any, bool) {
	return diff.Get(d.data, path)
}

// Set assigns the working value at a dotted path, creating intermediate
// objects as needed. Nothing is validated or stored until Save.
func (d *Document) Set(path string, value any) {
	diff.Set(d.data, path, value)
}

// Remove deletes the working value at a dotted path. The next Save unsets it
// in the store.
func (d *Document) Remove(path string) {
	diff.Delete(d.data, path)
}

// Data returns a deep copy of the working data.
func (d *Document) Data() map[string]any {
	return diff.CopyMap(d.data)
}

// Original returns a deep copy of the last snapshot known to the store.
func (d *Document) Original() map[string]any {
	return diff.CopyMap(d.original)
}

// Schema returns the active schema fields.
func (d *Document) Schema() schema.Fields {
	return d.fields
}

// UniqueFields returns the sorted names of the active schema's unique fields.
func (d *Document) UniqueFields() []string {
	return append([]string(nil), d.unique...)
}

// ID returns the native identifier, or nil before the first insert.
func (d *Document) ID() any {
	return d.data[store.IDKey]
}

// SetID assigns a caller-chosen identifier. The next Save inserts the
// document under that identifier.
func (d *Document) SetID(id any) error {
	parsed, err := d.class.ids.Parse(id)
	if err != nil {
		return schema.NewCastError(store.IDKey, err)
	}
	d.data[store.IDKey] = parsed
	d.meta.usingCustomID = true
	return nil
}

// IsPersisted reports whether the document has an identity in the store.
func (d *Document) IsPersisted() bool {
	_, ok := d.identityQuery()
	return ok && !d.meta.usingCustomID && !d.deleted
}

// IsDeleted reports whether Delete succeeded on this document.
func (d *Document) IsDeleted() bool { return d.deleted }

// IsLoaded reports whether key holds a loaded relationship.
func (d *Document) IsLoaded(key string) bool { return d.loaded[key] }

// Changes returns the persistable changes since the last snapshot, sorted by
// path. Append fields and loaded relationships are not included.
func (d *Document) Changes() []Change {
	return diff.Changes(d.persistable(d.original), d.persistable(d.data))
}

// identityQuery addresses the document in the store: by identifier when it
// has one, else by the query it was found with.
func (d *Document) identityQuery() (store.Query, bool) {
	if id := d.ID(); id != nil {
		return store.Query{store.IDKey: id}, true
	}
	if d.meta.findQuery != nil {
		return store.Query(diff.CopyMap(d.meta.findQuery)), true
	}
	return nil, false
}

// persistable returns a deep copy of m without append and loaded keys.
func (d *Document) persistable(m map[string]any) map[string]any {
	out := diff.CopyMap(m)
	for name := range d.class.appends {
		delete(out, name)
	}
	for key := range d.loaded {
		delete(out, key)
	}
	return out
}

// exempt lists the keys never subject to strict checks besides the
// identifier.
func (d *Document) exempt() []string {
	keys := d.class.appendNames()
	for key := range d.loaded {
		keys = append(keys, key)
	}
	return keys
}

func (d *Document) populateAppends() {
	for _, name := range d.class.appendNames() {
		d.data[name] = d.class.appends[name](d)
	}
}
