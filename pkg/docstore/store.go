package docstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tableflip.dev/daynotes/pkg/timeutil"
)

type docKey struct {
	collection string
	id         string
}

// backend is the raw byte storage a store is layered on. erase must apply
// all keys or none.
type backend interface {
	readAll(ctx context.Context, collection string) (map[string][]byte, error)
	read(ctx context.Context, collection, id string) ([]byte, error)
	write(ctx context.Context, collection, id string, data []byte) error
	erase(ctx context.Context, keys []docKey) error
	watch(ctx context.Context, collection string) (<-chan struct{}, error)
	close() error
}

// Option configures a Store.
type Option func(*options)

type options struct {
	clock  timeutil.Clock
	logger *zap.Logger
	newID  func() string
}

// WithClock sets the clock server timestamps are issued from.
func WithClock(c timeutil.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger used for skipped documents and watch failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithIDGenerator replaces the uuid based id generator used by Add.
func WithIDGenerator(f func() string) Option {
	return func(o *options) { o.newID = f }
}

func resolveOptions(opts []Option) options {
	o := options{
		clock:  timeutil.System,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type store struct {
	b      backend
	opts   options
	mu     sync.Mutex
	last   Timestamp
	closed atomic.Bool
}

func newStore(b backend, o options) *store {
	return &store{b: b, opts: o}
}

func (s *store) Collection(path string) Collection {
	return &collection{s: s, path: strings.Trim(path, "/")}
}

func (s *store) Batch() Batch {
	return &batch{s: s}
}

func (s *store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.b.close()
}

// stamp issues a strictly increasing Timestamp.
func (s *store) stamp() Timestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := TimestampOf(s.opts.clock.Now())
	if !s.last.Before(ts) {
		ts = s.last
		ts.Nanos++
		if ts.Nanos >= 1e9 {
			ts.Seconds++
			ts.Nanos = 0
		}
	}
	s.last = ts
	return ts
}

func (s *store) resolve(f Fields) Fields {
	out := f.clone()
	for k, v := range out {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = s.stamp()
		}
	}
	return out
}

type collection struct {
	s    *store
	path string
}

func (c *collection) Path() string { return c.path }

func (c *collection) check() error {
	if c.s.closed.Load() {
		return ErrClosed
	}
	return validPath(c.path)
}

func (c *collection) Add(ctx context.Context, fields Fields) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	id := c.s.opts.newID()
	if err := validID(id); err != nil {
		return "", err
	}
	data, err := encode(c.s.resolve(fields))
	if err != nil {
		return "", fmt.Errorf("docstore: encode %s: %w", c.path, err)
	}
	if err := c.s.b.write(ctx, c.path, id, data); err != nil {
		return "", fmt.Errorf("docstore: add to %s: %w", c.path, err)
	}
	return id, nil
}

func (c *collection) Get(ctx context.Context, id string) (Document, error) {
	if err := c.check(); err != nil {
		return Document{}, err
	}
	if err := validID(id); err != nil {
		return Document{}, err
	}
	data, err := c.s.b.read(ctx, c.path, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("docstore: get %s/%s: %w", c.path, id, err)
	}
	doc, err := decode(id, data)
	if err != nil {
		return Document{}, fmt.Errorf("docstore: decode %s/%s: %w", c.path, id, err)
	}
	return doc, nil
}

func (c *collection) Set(ctx context.Context, id string, fields Fields, opts ...SetOption) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := validID(id); err != nil {
		return err
	}
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	next := c.s.resolve(fields)
	if o.merge {
		// Merges are read-modify-write; serialize them within the process.
		c.s.mu.Lock()
		defer c.s.mu.Unlock()
		existing, err := c.s.b.read(ctx, c.path, id)
		switch {
		case err == nil:
			doc, err := decode(id, existing)
			if err != nil {
				return fmt.Errorf("docstore: decode %s/%s: %w", c.path, id, err)
			}
			for k, v := range next {
				doc.Fields[k] = v
			}
			next = doc.Fields
		case errors.Is(err, ErrNotFound):
		default:
			return fmt.Errorf("docstore: merge %s/%s: %w", c.path, id, err)
		}
	}

	data, err := encode(next)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", c.path, id, err)
	}
	if err := c.s.b.write(ctx, c.path, id, data); err != nil {
		return fmt.Errorf("docstore: set %s/%s: %w", c.path, id, err)
	}
	return nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := validID(id); err != nil {
		return err
	}
	if err := c.s.b.erase(ctx, []docKey{{collection: c.path, id: id}}); err != nil {
		return fmt.Errorf("docstore: delete %s/%s: %w", c.path, id, err)
	}
	return nil
}

func (c *collection) List(ctx context.Context, q Query) ([]Document, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	raw, err := c.s.b.readAll(ctx, c.path)
	if err != nil {
		return nil, fmt.Errorf("docstore: list %s: %w", c.path, err)
	}
	docs := make([]Document, 0, len(raw))
	for id, data := range raw {
		doc, err := decode(id, data)
		if err != nil {
			c.s.opts.logger.Warn("skipping undecodable document",
				zap.String("collection", c.path), zap.String("id", id), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	return applyQuery(docs, q), nil
}

func (c *collection) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	changes, err := c.s.b.watch(ctx, c.path)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("docstore: subscribe %s: %w", c.path, err)
	}

	out := make(chan Snapshot, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		push := func() bool {
			docs, err := c.List(ctx, q)
			if ctx.Err() != nil {
				return false
			}
			select {
			case out <- Snapshot{Docs: docs, Err: err}:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if !push() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				if !push() {
					return
				}
			}
		}
	}()
	return &Subscription{C: out, cancel: cancel, done: done}, nil
}

type batch struct {
	s    *store
	mu   sync.Mutex
	keys []docKey
}

func (b *batch) Delete(collection, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, docKey{collection: strings.Trim(collection, "/"), id: id})
}

func (b *batch) Commit(ctx context.Context) error {
	if b.s.closed.Load() {
		return ErrClosed
	}
	b.mu.Lock()
	keys := b.keys
	b.keys = nil
	b.mu.Unlock()
	if len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		if err := validPath(k.collection); err != nil {
			return err
		}
		if err := validID(k.id); err != nil {
			return err
		}
	}
	if err := b.s.b.erase(ctx, keys); err != nil {
		return fmt.Errorf("docstore: commit batch of %d: %w", len(keys), err)
	}
	return nil
}

// applyQuery orders docs. Without OrderBy documents come back by id, the
// order a collection read is defined to have.
func applyQuery(docs []Document, q Query) []Document {
	if q.OrderBy == "" {
		sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
		return docs
	}
	kept := docs[:0]
	for _, d := range docs {
		if _, ok := d.Fields[q.OrderBy]; ok {
			kept = append(kept, d)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		c := compareValues(kept[i].Fields[q.OrderBy], kept[j].Fields[q.OrderBy])
		if c == 0 {
			return kept[i].ID < kept[j].ID
		}
		if q.Direction == Descending {
			return c > 0
		}
		return c < 0
	})
	return kept
}

func compareValues(a, b any) int {
	if ta, ok := asTimestamp(a); ok {
		if tb, ok := asTimestamp(b); ok {
			switch {
			case ta.Before(tb):
				return -1
			case tb.Before(ta):
				return 1
			}
			return 0
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok && av != bv {
			if av {
				return 1
			}
			return -1
		}
	}
	return 0
}
