package testutil

import (
	"context"
	"sync"

	"github.com/arthur-debert/nanomodel/store"
)

// RecordingCollection wraps a Collection, counting write calls and
// optionally failing them.
type RecordingCollection struct {
	store.Collection

	mu      sync.Mutex
	Inserts int
	Updates []store.Update
	Deletes int

	// InsertErr, UpdateErr and DeleteErr, when set, are returned instead of
	// calling the wrapped collection.
	InsertErr error
	UpdateErr error
	DeleteErr error
}

// NewRecordingCollection wraps coll.
func NewRecordingCollection(coll store.Collection) *RecordingCollection {
	return &RecordingCollection{Collection: coll}
}

// InsertOne implements store.Collection.InsertOne
func (r *RecordingCollection) InsertOne(ctx context.Context, doc map[string]any) (store.InsertResult, error) {
	r.mu.Lock()
	r.Inserts++
	err := r.InsertErr
	r.mu.Unlock()
	if err != nil {
		return store.InsertResult{}, err
	}
	return r.Collection.InsertOne(ctx, doc)
}

// UpdateOne implements store.Collection.UpdateOne
func (r *RecordingCollection) UpdateOne(ctx context.Context, q store.Query, u store.Update) (store.UpdateResult, error) {
	r.mu.Lock()
	r.Updates = append(r.Updates, u)
	err := r.UpdateErr
	r.mu.Unlock()
	if err != nil {
		return store.UpdateResult{}, err
	}
	return r.Collection.UpdateOne(ctx, q, u)
}

// DeleteOne implements store.Collection.DeleteOne
func (r *RecordingCollection) DeleteOne(ctx context.Context, q store.Query) (store.DeleteResult, error) {
	r.mu.Lock()
	r.Deletes++
	err := r.DeleteErr
	r.mu.Unlock()
	if err != nil {
		return store.DeleteResult{}, err
	}
	return r.Collection.DeleteOne(ctx, q)
}

// Writes returns the total number of write calls.
func (r *RecordingCollection) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Inserts + len(r.Updates) + r.Deletes
}

// LastUpdate returns the most recent update, if any.
func (r *RecordingCollection) LastUpdate() (store.Update, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Updates) == 0 {
		return store.Update{}, false
	}
	return r.Updates[len(r.Updates)-1], true
}
