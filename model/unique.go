package model

import (
	"context"
	"fmt"

	"github.com/arthur-debert/nanomodel/store"
)

// CheckUnique rejects candidate when any unique field's value is already
// stored in another record. Fields are checked in name order and the first
// violation is returned. The lookup is a best-effort pre-check: two
// concurrent saves can still both pass it.
func (d *Document) CheckUnique(ctx context.Context, candidate map[string]any) error {
	for _, field := range d.unique {
		value, ok := candidate[field]
		if !ok || value == nil {
			continue
		}

		q := store.Query{field: value}
		if build := d.fields[field].UniqueQuery; build != nil {
			q = store.Query{}
			for k, v := range build(field, value) {
				q[k] = v
			}
		}
		if id := d.ID(); id != nil {
			q = excludeSelf(q, id)
		}

		n, err := d.class.coll.CountDocuments(ctx, q)
		if err != nil {
			return fmt.Errorf("failed to check uniqueness of %s: %w", field, err)
		}
		if n > 0 {
			return NewUniquenessError(field, value)
		}
	}
	return nil
}

// excludeSelf adds "_id != id" to q. An _id condition already in q is kept
// by combining both with $and.
func excludeSelf(q store.Query, id any) store.Query {
	notSelf := store.Query{"$ne": id}
	if _, taken := q[store.IDKey]; !taken {
		q[store.IDKey] = notSelf
		return q
	}
	return store.Query{"$and": []any{map[string]any(q), map[string]any{store.IDKey: notSelf}}}
}
