package model

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/arthur-debert/nanomodel/internal/diff"
	"github.com/arthur-debert/nanomodel/store"
)

// RelationType names the kind of a relationship.
type RelationType string

// HasOne loads a single related document.
const HasOne RelationType = "hasOne"

// Relationship declares how to load related documents.
type Relationship struct {
	Type RelationType

	// Model is the related class.
	Model *Class

	// Where maps a field of the related document to the path of the value in
	// this document, e.g. {"_id": "authorId"}.
	Where map[string]string

	Options RelationshipOptions
}

// RelationshipOptions tunes loading.
type RelationshipOptions struct {
	// Alias is the key the result is stored under. Defaults to the
	// relationship name.
	Alias string

	// Cast wraps the result into a *Document of the related class instead of
	// a raw record.
	Cast bool

	// Find is passed to the related collection's FindOne.
	Find store.FindOptions
}

// AddRelationship declares a relationship after construction, which lets
// classes refer to each other. Call it before creating documents.
func (c *Class) AddRelationship(name string, rel Relationship) {
	c.relationships[name] = rel
}

// Relationships returns the declared relationship names, sorted.
func (c *Class) Relationships() []string {
	names := make([]string, 0, len(c.relationships))
	for name := range c.relationships {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load resolves the named relationship and stores the result in the working
// data under the relationship name or its alias. The key is then excluded
// from validation and persistence. A missing related record loads as nil.
func (d *Document) Load(ctx context.Context, name string) (any, error) {
	rel, ok := d.class.relationships[name]
	if !ok {
		return nil, NewRelationshipConfigError(name, "is not declared")
	}
	if rel.Type != HasOne {
		return nil, NewRelationshipConfigError(name, fmt.Sprintf("has unsupported type %q", rel.Type))
	}
	if rel.Model == nil {
		return nil, NewRelationshipConfigError(name, "has no related model")
	}

	q := make(store.Query, len(rel.Where))
	for target, source := range rel.Where {
		value, _ := d.Get(source)
		q[target] = value
	}

	var result any
	raw, err := rel.Model.coll.FindOne(ctx, q, rel.Options.Find)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load relationship %s: %w", name, err)
	case rel.Options.Cast:
		related, err := rel.Model.hydrate(raw, store.Query(diff.CopyMap(q)), projectionOf([]store.FindOptions{rel.Options.Find}))
		if err != nil {
			return nil, err
		}
		result = related
	default:
		result = raw
	}

	key := name
	if rel.Options.Alias != "" {
		key = rel.Options.Alias
	}
	d.data[key] = result
	d.loaded[key] = true
	return result, nil
}
