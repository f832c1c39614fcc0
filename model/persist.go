package model

import (
	"context"
	"fmt"
	"sort"

	"github.com/arthur-debert/nanomodel/internal/diff"
	"github.com/arthur-debert/nanomodel/store"
)

// SaveResult tells which path Save took.
type SaveResult int

const (
	// NoChanges means the persisted document had no changes and the store
	// was not called.
	NoChanges SaveResult = iota
	// Inserted means a new record was written.
	Inserted
	// Updated means the changed fields of an existing record were written.
	Updated
)

func (r SaveResult) String() string {
	switch r {
	case NoChanges:
		return "no changes"
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	}
	return fmt.Sprintf("SaveResult(%d)", int(r))
}

// Save writes the document to the store.
//
// A document with an identity and no pending custom identifier is updated:
// only the paths that differ from the original snapshot are validated,
// checked for uniqueness and written, and the snapshot advances by the
// committed values. Any other document is validated in full, checked for
// uniqueness and inserted, after which the working data holds the validated
// values and the assigned identifier.
//
// The snapshot only changes after the store write succeeds, so a failed Save
// can be retried.
func (d *Document) Save(ctx context.Context) (SaveResult, error) {
	if d.deleted {
		return NoChanges, newDeletedError("save")
	}
	if q, ok := d.identityQuery(); ok && !d.meta.usingCustomID {
		return d.update(ctx, q)
	}
	return d.insert(ctx)
}

func (d *Document) insert(ctx context.Context) (SaveResult, error) {
	validated, err := d.Validate()
	if err != nil {
		return NoChanges, err
	}
	if err := d.CheckUnique(ctx, validated); err != nil {
		return NoChanges, err
	}

	res, err := d.class.coll.InsertOne(ctx, validated)
	if err != nil {
		return NoChanges, fmt.Errorf("failed to insert %s document: %w", d.class.name, err)
	}
	validated[store.IDKey] = res.InsertedID

	data := diff.CopyMap(validated)
	for key := range d.loaded {
		data[key] = d.data[key]
	}
	d.data = data
	d.original = diff.CopyMap(validated)
	d.meta.usingCustomID = false
	d.meta.findQuery = nil
	d.populateAppends()

	d.class.logger.Debug("document inserted", "model", d.class.name, "id", res.InsertedID)
	return Inserted, nil
}

func (d *Document) update(ctx context.Context, q store.Query) (SaveResult, error) {
	changes := d.Changes()
	if len(changes) == 0 {
		d.class.logger.Debug("save skipped, no changes", "model", d.class.name, "id", d.ID())
		return NoChanges, nil
	}

	payload, unset := d.changeSet(changes)
	validated, err := d.ValidatePartial(payload)
	if err != nil {
		return NoChanges, err
	}
	// Optional schema fields that validated to nothing are unset.
	for key := range payload {
		if _, isField := d.fields[key]; isField {
			if _, kept := validated[key]; !kept {
				unset = append(unset, key)
			}
		}
	}
	sort.Strings(unset)

	u := store.Update{Set: validated, Unset: unset}
	if u.IsEmpty() {
		d.class.logger.Debug("save skipped, nothing to write", "model", d.class.name, "id", d.ID())
		return NoChanges, nil
	}
	if err := d.CheckUnique(ctx, validated); err != nil {
		return NoChanges, err
	}

	res, err := d.class.coll.UpdateOne(ctx, q, u)
	if err != nil {
		return NoChanges, fmt.Errorf("failed to update %s document: %w", d.class.name, err)
	}
	if res.MatchedCount == 0 {
		return NoChanges, fmt.Errorf("failed to update %s document: %w", d.class.name, store.ErrNotFound)
	}

	// Committed values are cast, so the working data takes them as well.
	for path, value := range u.Set {
		diff.Set(d.original, path, diff.Copy(value))
		diff.Set(d.data, path, diff.Copy(value))
	}
	for _, path := range u.Unset {
		diff.Delete(d.original, path)
		if v, ok := diff.Get(d.data, path); ok && v == nil {
			diff.Delete(d.data, path)
		}
	}
	d.populateAppends()

	d.class.logger.Debug("document updated", "model", d.class.name, "id", d.ID(),
		"set", len(u.Set), "unset", len(u.Unset))
	return Updated, nil
}

// changeSet turns leaf changes into an update payload. A change under a
// schema field carries the field's whole current value, nil when the field
// was removed, so the field is revalidated as a unit. Other changes carry
// their leaf value, or are unset when removed.
func (d *Document) changeSet(changes []Change) (map[string]any, []string) {
	payload := make(map[string]any)
	var unset []string
	for _, c := range changes {
		root := diff.Root(c.Path)
		if _, isField := d.fields[root]; isField {
			payload[root] = diff.Copy(d.data[root])
			continue
		}
		if c.Kind == Removed {
			unset = append(unset, c.Path)
			continue
		}
		payload[c.Path] = diff.Copy(c.After)
	}
	return payload, unset
}

// Delete removes the document from the store. The working data is kept for
// reading but the document accepts no further writes.
func (d *Document) Delete(ctx context.Context) error {
	if d.deleted {
		return newDeletedError("delete")
	}
	q, ok := d.persistedQuery()
	if !ok {
		return NewNoIdentityError("delete")
	}
	if _, err := d.class.coll.DeleteOne(ctx, q); err != nil {
		return fmt.Errorf("failed to delete %s document: %w", d.class.name, err)
	}
	d.deleted = true
	d.class.logger.Debug("document deleted", "model", d.class.name, "id", d.ID())
	return nil
}

// Unset removes keys from the stored record, then from the working data and
// the snapshot.
func (d *Document) Unset(ctx context.Context, keys ...string) error {
	if d.deleted {
		return newDeletedError("unset")
	}
	q, ok := d.persistedQuery()
	if !ok {
		return NewNoIdentityError("unset")
	}
	if len(keys) == 0 {
		return nil
	}
	if _, err := d.class.coll.UpdateOne(ctx, q, store.Update{Unset: keys}); err != nil {
		return fmt.Errorf("failed to unset %s fields: %w", d.class.name, err)
	}
	for _, key := range keys {
		diff.Delete(d.data, key)
		diff.Delete(d.original, key)
	}
	return nil
}

// UpdateRaw sends u to the store unvalidated. Neither the working data nor
// the snapshot change; call Reload to pick up the result.
func (d *Document) UpdateRaw(ctx context.Context, u store.Update) (store.UpdateResult, error) {
	if d.deleted {
		return store.UpdateResult{}, newDeletedError("update")
	}
	q, ok := d.persistedQuery()
	if !ok {
		return store.UpdateResult{}, NewNoIdentityError("update")
	}
	res, err := d.class.coll.UpdateOne(ctx, q, u)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to update %s document: %w", d.class.name, err)
	}
	return res, nil
}

// Reload replaces the working data and the snapshot with the stored record
// and reapplies the active schema. Loaded relationships are dropped.
func (d *Document) Reload(ctx context.Context) error {
	q, ok := d.persistedQuery()
	if !ok {
		return NewNoIdentityError("reload")
	}
	raw, err := d.class.coll.FindOne(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to reload %s document: %w", d.class.name, err)
	}
	d.data = diff.CopyMap(raw)
	d.original = diff.CopyMap(raw)
	d.loaded = make(map[string]bool)
	d.meta.projection = nil
	d.applyStored(d.fields)
	d.populateAppends()
	return nil
}

// persistedQuery is the identity query of a document already in the store.
func (d *Document) persistedQuery() (store.Query, bool) {
	if d.meta.usingCustomID {
		return nil, false
	}
	return d.identityQuery()
}
