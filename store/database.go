package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arthur-debert/nanomodel/identifier"
	"github.com/arthur-debert/nanomodel/internal/diff"
	"github.com/arthur-debert/nanomodel/store/internal/matcher"
)

// database is the in-memory engine shared by the memory and JSON file
// stores. Records are never mutated in place: every write builds a new slice
// for the collection so a failed persist can restore the previous one.
type database struct {
	lm          *LockManager
	ids         identifier.Identifier
	logger      *slog.Logger
	collections map[string][]map[string]any
	closed      bool

	// persist is called while holding the write lock after every change.
	// Nil for purely in-memory databases.
	persist func() error
}

func newDatabase(ids identifier.Identifier, logger *slog.Logger) *database {
	if ids == nil {
		ids = identifier.NewUUID()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &database{
		lm:          NewLockManager(),
		ids:         ids,
		logger:      logger,
		collections: make(map[string][]map[string]any),
	}
}

// Collection implements Database.Collection
func (db *database) Collection(name string) Collection {
	return &collection{db: db, name: name}
}

func (db *database) close() error {
	return db.lm.Execute(WriteOperation, func() error {
		db.closed = true
		return nil
	})
}

func (db *database) read(ctx context.Context, name string, fn func(records []map[string]any) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.lm.Execute(ReadOperation, func() error {
		if db.closed {
			return ErrClosed
		}
		return fn(db.collections[name])
	})
}

func (db *database) write(ctx context.Context, name string, fn func(records []map[string]any) ([]map[string]any, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.lm.Execute(WriteOperation, func() error {
		if db.closed {
			return ErrClosed
		}
		before, existed := db.collections[name]
		after, err := fn(before)
		if err != nil {
			return err
		}
		db.collections[name] = after
		if db.persist == nil {
			return nil
		}
		if err := db.persist(); err != nil {
			// Restore the previous state on save failure
			if existed {
				db.collections[name] = before
			} else {
				delete(db.collections, name)
			}
			return fmt.Errorf("failed to save: %w", err)
		}
		return nil
	})
}

// collection is a handle on one named collection of a database.
type collection struct {
	db   *database
	name string
}

// Name implements Collection.Name
func (c *collection) Name() string { return c.name }

// Find implements Collection.Find
func (c *collection) Find(ctx context.Context, q Query, opts ...FindOptions) ([]map[string]any, error) {
	var result []map[string]any
	err := c.db.read(ctx, c.name, func(records []map[string]any) error {
		matched, err := filter(records, q)
		if err != nil {
			return err
		}
		result = applyFindOptions(matched, mergeFindOptions(opts))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FindOne implements Collection.FindOne
func (c *collection) FindOne(ctx context.Context, q Query, opts ...FindOptions) (map[string]any, error) {
	o := mergeFindOptions(opts)
	o.Limit = 1
	docs, err := c.Find(ctx, q, o)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// InsertOne implements Collection.InsertOne
func (c *collection) InsertOne(ctx context.Context, doc map[string]any) (InsertResult, error) {
	record := diff.CopyMap(doc)
	err := c.db.write(ctx, c.name, func(records []map[string]any) ([]map[string]any, error) {
		id, ok := record[IDKey]
		if !ok || id == nil {
			id = c.db.ids.Generate()
			record[IDKey] = id
		}
		for _, existing := range records {
			if matcher.Equal(existing[IDKey], id) {
				return nil, fmt.Errorf("%w: %v", ErrDuplicateID, id)
			}
		}
		// Full slice expression forces a copy so the previous slice stays intact.
		return append(records[:len(records):len(records)], record), nil
	})
	if err != nil {
		return InsertResult{}, err
	}
	c.db.logger.Debug("document inserted", "collection", c.name, "id", record[IDKey])
	return InsertResult{InsertedID: record[IDKey]}, nil
}

// UpdateOne implements Collection.UpdateOne
func (c *collection) UpdateOne(ctx context.Context, q Query, u Update) (UpdateResult, error) {
	var result UpdateResult
	err := c.db.write(ctx, c.name, func(records []map[string]any) ([]map[string]any, error) {
		idx, err := firstMatch(records, q)
		if err != nil || idx < 0 {
			return records, err
		}
		result.MatchedCount = 1

		updated := diff.CopyMap(records[idx])
		for path, value := range u.Set {
			if path == IDKey && !matcher.Equal(updated[IDKey], value) {
				return nil, fmt.Errorf("cannot modify %s", IDKey)
			}
			diff.Set(updated, path, diff.Copy(value))
		}
		for _, path := range u.Unset {
			if path == IDKey {
				return nil, fmt.Errorf("cannot unset %s", IDKey)
			}
			diff.Delete(updated, path)
		}
		if diff.Equal(updated, records[idx]) {
			return records, nil
		}
		result.ModifiedCount = 1

		out := make([]map[string]any, len(records))
		copy(out, records)
		out[idx] = updated
		return out, nil
	})
	if err != nil {
		return UpdateResult{}, err
	}
	c.db.logger.Debug("document updated", "collection", c.name,
		"matched", result.MatchedCount, "modified", result.ModifiedCount)
	return result, nil
}

// DeleteOne implements Collection.DeleteOne
func (c *collection) DeleteOne(ctx context.Context, q Query) (DeleteResult, error) {
	var result DeleteResult
	err := c.db.write(ctx, c.name, func(records []map[string]any) ([]map[string]any, error) {
		idx, err := firstMatch(records, q)
		if err != nil || idx < 0 {
			return records, err
		}
		result.DeletedCount = 1
		out := make([]map[string]any, 0, len(records)-1)
		out = append(out, records[:idx]...)
		return append(out, records[idx+1:]...), nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	c.db.logger.Debug("document deleted", "collection", c.name, "deleted", result.DeletedCount)
	return result, nil
}

// Aggregate implements Collection.Aggregate
func (c *collection) Aggregate(ctx context.Context, p Pipeline) ([]map[string]any, error) {
	var result []map[string]any
	err := c.db.read(ctx, c.name, func(records []map[string]any) error {
		out, err := aggregate(records, p)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CountDocuments implements Collection.CountDocuments
func (c *collection) CountDocuments(ctx context.Context, q Query) (int64, error) {
	var n int64
	err := c.db.read(ctx, c.name, func(records []map[string]any) error {
		for _, r := range records {
			ok, err := matcher.Match(r, q)
			if err != nil {
				return err
			}
			if ok {
				n++
			}
		}
		return nil
	})
	return n, err
}

// EstimatedCount implements Collection.EstimatedCount
func (c *collection) EstimatedCount(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.read(ctx, c.name, func(records []map[string]any) error {
		n = int64(len(records))
		return nil
	})
	return n, err
}

func firstMatch(records []map[string]any, q Query) (int, error) {
	for i, r := range records {
		ok, err := matcher.Match(r, q)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}
