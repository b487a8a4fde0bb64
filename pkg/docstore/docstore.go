// Package docstore is the document collection layer notes, history records and
// user profiles are kept in. Collections are addressed by slash separated
// paths (users/{uid}/notes) and hold JSON documents keyed by id. A collection
// can be listed, mutated one document at a time, cleared in an all-or-nothing
// batch, and subscribed to for full ordered snapshots after every change.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Get when no document has the requested id.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrInvalidID is returned for empty ids or ids that cannot be stored.
	ErrInvalidID = errors.New("docstore: invalid document id")

	// ErrClosed is returned after the Store has been closed.
	ErrClosed = errors.New("docstore: store closed")
)

// Document is a single stored record.
type Document struct {
	ID     string
	Fields Fields
}

// Direction orders query results.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Query selects and orders the documents of a collection. With an OrderBy
// field set, documents lacking that field are left out of the result.
type Query struct {
	OrderBy   string
	Direction Direction
}

// OrderBy is shorthand for building a Query.
func OrderBy(field string, dir Direction) Query {
	return Query{OrderBy: field, Direction: dir}
}

// Snapshot is the full ordered content of a collection at one point in time.
// Err is set when the snapshot could not be read; Docs is nil then.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Subscription streams snapshots until cancelled. C is closed once the
// subscription ends.
type Subscription struct {
	C      <-chan Snapshot
	cancel context.CancelFunc
	done   <-chan struct{}
}

// Cancel stops the subscription and waits for its goroutine to exit.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// SetOption tunes Collection.Set.
type SetOption func(*setOptions)

type setOptions struct {
	merge bool
}

// Merge makes Set overlay the given fields onto the stored document instead
// of replacing it.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// Collection is a named set of documents.
type Collection interface {
	Path() string
	Add(ctx context.Context, fields Fields) (string, error)
	Get(ctx context.Context, id string) (Document, error)
	Set(ctx context.Context, id string, fields Fields, opts ...SetOption) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) ([]Document, error)
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
}

// Batch groups deletes that commit all together or not at all.
type Batch interface {
	Delete(collection, id string)
	Commit(ctx context.Context) error
}

// Store opens collections and batches over one backend.
type Store interface {
	Collection(path string) Collection
	Batch() Batch
	Close() error
}

// UserPath is the profile collection; a user's profile is the document
// named by their uid.
const UserPath = "users"

// NotesPath returns the live notes collection of uid.
func NotesPath(uid string) string {
	return fmt.Sprintf("users/%s/notes", uid)
}

// HistoryPath returns the archive collection of uid.
func HistoryPath(uid string) string {
	return fmt.Sprintf("users/%s/history", uid)
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "./\\") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func validPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("docstore: collection path required")
	}
	return nil
}
