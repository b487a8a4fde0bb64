// Package projection mirrors a user's live notes and history into memory
// from two standing store subscriptions.
package projection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/note"
)

// ErrNoUser is returned by Open without a user id.
var ErrNoUser = errors.New("projection: user id required")

// Kind says which side of the projection changed.
type Kind int

const (
	NotesChanged Kind = iota
	HistoryChanged
)

func (k Kind) String() string {
	if k == HistoryChanged {
		return "history"
	}
	return "notes"
}

// Projection holds the current notes (newest first) and archive records
// (latest day first) of one user. At most one user's pair of subscriptions
// is open at a time.
type Projection struct {
	store  docstore.Store
	logger *zap.Logger

	mu        sync.RWMutex
	uid       string
	notes     []note.Note
	history   []note.Archive
	listeners []func(Kind)

	life   sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New returns a closed Projection over store.
func New(store docstore.Store, logger *zap.Logger) *Projection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projection{store: store, logger: logger.Named("projection")}
}

// OnChange registers fn to run after each rebuilt snapshot. fn runs on a
// subscription goroutine; it must not block for long or call Close.
func (p *Projection) OnChange(fn func(Kind)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Open closes any open subscriptions and subscribes to uid's notes and
// history. The state is empty until the first snapshots arrive.
func (p *Projection) Open(ctx context.Context, uid string) error {
	if uid == "" {
		return ErrNoUser
	}
	p.life.Lock()
	defer p.life.Unlock()
	p.closeLocked()

	ctx, cancel := context.WithCancel(ctx)
	notes, err := p.store.Collection(docstore.NotesPath(uid)).
		Subscribe(ctx, docstore.OrderBy(note.FieldCreatedAt, docstore.Descending))
	if err != nil {
		cancel()
		return fmt.Errorf("projection: open notes: %w", err)
	}
	history, err := p.store.Collection(docstore.HistoryPath(uid)).
		Subscribe(ctx, docstore.OrderBy(note.FieldDate, docstore.Descending))
	if err != nil {
		notes.Cancel()
		cancel()
		return fmt.Errorf("projection: open history: %w", err)
	}

	p.mu.Lock()
	p.uid, p.notes, p.history = uid, nil, nil
	p.mu.Unlock()

	logger := p.logger.With(zap.String("uid", uid))
	g := &errgroup.Group{}
	g.Go(func() error {
		defer notes.Cancel()
		p.consume(notes, logger, NotesChanged)
		return nil
	})
	g.Go(func() error {
		defer history.Cancel()
		p.consume(history, logger, HistoryChanged)
		return nil
	})
	p.cancel, p.group = cancel, g
	logger.Debug("subscriptions opened")
	return nil
}

// Close cancels both subscriptions and clears the state.
func (p *Projection) Close() {
	p.life.Lock()
	defer p.life.Unlock()
	p.closeLocked()
}

func (p *Projection) closeLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	_ = p.group.Wait()
	p.cancel, p.group = nil, nil

	p.mu.Lock()
	p.uid, p.notes, p.history = "", nil, nil
	p.mu.Unlock()
}

// UID returns the user the projection is open for, or "".
func (p *Projection) UID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.uid
}

// Notes returns a copy of the visible live notes, newest first.
func (p *Projection) Notes() []note.Note {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]note.Note(nil), p.notes...)
}

// History returns a copy of the visible archive records, latest first.
func (p *Projection) History() []note.Archive {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]note.Archive, len(p.history))
	for i, a := range p.history {
		a.Tasks = append([]string(nil), a.Tasks...)
		out[i] = a
	}
	return out
}

func (p *Projection) consume(sub *docstore.Subscription, logger *zap.Logger, kind Kind) {
	for snap := range sub.C {
		if snap.Err != nil {
			// Keep the last good state; the next change delivers a fresh one.
			logger.Warn("snapshot failed", zap.Stringer("kind", kind), zap.Error(snap.Err))
			continue
		}
		p.apply(kind, snap.Docs)
	}
}

func (p *Projection) apply(kind Kind, docs []docstore.Document) {
	p.mu.Lock()
	switch kind {
	case NotesChanged:
		notes := make([]note.Note, 0, len(docs))
		for _, d := range docs {
			if n := note.FromDocument(d); n.Visible() {
				notes = append(notes, n)
			}
		}
		p.notes = notes
	case HistoryChanged:
		history := make([]note.Archive, 0, len(docs))
		for _, d := range docs {
			if a := note.ArchiveFromDocument(d); a.Visible() {
				history = append(history, a)
			}
		}
		p.history = history
	}
	listeners := make([]func(Kind), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(kind)
	}
}
