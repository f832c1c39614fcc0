// Package store defines the document store collaborator used by nanomodel
// and ships two implementations of it: an in-memory database and a JSON file
// database guarded by a cross-process file lock.
//
// A Database holds named collections. Each Collection stores records as
// map[string]any keyed by the reserved "_id" field, which the collection fills
// with a freshly generated identifier when an inserted record has none.
package store

import (
	"context"
	"errors"
)

// IDKey is the reserved record field holding the native identifier.
const IDKey = "_id"

var (
	// ErrNotFound is returned by FindOne when no record matches.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateID is returned by InsertOne when the record's identifier is
	// already used in the collection.
	ErrDuplicateID = errors.New("duplicate document identifier")

	// ErrClosed is returned by operations on a closed database.
	ErrClosed = errors.New("store is closed")
)

// Query selects records. Keys are dotted field paths (or "$and"/"$or"),
// values are literals for equality or operator maps:
//
//	store.Query{"age": store.Query{"$gte": 18}, "status": "active"}
//
// Supported operators: $eq $ne $in $nin $gt $gte $lt $lte $exists.
type Query map[string]any

// Update describes a partial modification of one record. Keys may be dotted
// paths into nested objects.
type Update struct {
	Set   map[string]any
	Unset []string
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return len(u.Set) == 0 && len(u.Unset) == 0
}

// SortField orders results by one field.
type SortField struct {
	Field      string
	Descending bool
}

// FindOptions configures Find and FindOne.
type FindOptions struct {
	// Sort is applied before Skip and Limit.
	Sort []SortField

	// Skip drops the first results. Zero or negative means no offset.
	Skip int

	// Limit caps the number of results. Zero or negative means no limit.
	Limit int

	// Projection keeps (true) or drops (false) fields. A projection with any
	// inclusion keeps only the included fields plus the identifier, unless
	// the identifier is explicitly excluded.
	Projection map[string]bool
}

// Stage is one aggregation step. Exactly one operation should be set; when
// several are, they run in field order.
type Stage struct {
	Match   Query
	Sort    []SortField
	Skip    int
	Limit   int
	Project map[string]bool
	// Count replaces the stream with a single record {Count: n}.
	Count string
}

// Pipeline is an ordered list of aggregation stages.
type Pipeline []Stage

// InsertResult reports the identifier of an inserted record.
type InsertResult struct {
	InsertedID any
}

// UpdateResult reports how many records matched and changed.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// DeleteResult reports how many records were removed.
type DeleteResult struct {
	DeletedCount int64
}

// Collection is a named set of records in a Database.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Find returns copies of all records matching q.
	Find(ctx context.Context, q Query, opts ...FindOptions) ([]map[string]any, error)

	// FindOne returns a copy of the first record matching q or ErrNotFound.
	FindOne(ctx context.Context, q Query, opts ...FindOptions) (map[string]any, error)

	// InsertOne stores a copy of doc, generating an identifier when doc has
	// none.
	InsertOne(ctx context.Context, doc map[string]any) (InsertResult, error)

	// UpdateOne applies u to the first record matching q.
	UpdateOne(ctx context.Context, q Query, u Update) (UpdateResult, error)

	// DeleteOne removes the first record matching q.
	DeleteOne(ctx context.Context, q Query) (DeleteResult, error)

	// Aggregate runs p over the collection.
	Aggregate(ctx context.Context, p Pipeline) ([]map[string]any, error)

	// CountDocuments counts records matching q.
	CountDocuments(ctx context.Context, q Query) (int64, error)

	// EstimatedCount returns the collection size without filtering.
	EstimatedCount(ctx context.Context) (int64, error)
}

// Database provides access to named collections.
type Database interface {
	// Collection returns the named collection, creating it on first write.
	Collection(name string) Collection

	// Close releases any resources held by the database.
	Close() error
}
