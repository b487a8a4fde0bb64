// Package rollover archives a user's live notes once per local day.
//
// A Controller owns the user's rollover checkpoint. CheckAndRollover decides
// whether the day boundary has passed since the last rollover, Rollover moves
// every live note into one archive record and clears the live set, and Start
// keeps a timer armed for each following local midnight.
package rollover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/kv"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/schedule"
	"tableflip.dev/daynotes/pkg/timeutil"
)

// ErrNoUser is returned by New without a user id.
var ErrNoUser = errors.New("rollover: user id required")

// State is what a Controller is doing.
type State int32

const (
	Idle State = iota
	RollingOver
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RollingOver:
		return "rolling over"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Result describes one pass of CheckAndRollover or Rollover.
type Result struct {
	// Ran is true when the archive-and-clear sequence executed.
	Ran bool
	// ArchiveID is the new archive record; empty when nothing qualified.
	ArchiveID string
	// Archived is the number of note texts in the record.
	Archived int
	// Deleted is the number of live documents removed.
	Deleted int
	// At is the instant the checkpoint was advanced to.
	At time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock day boundaries are computed from.
func WithClock(c timeutil.Clock) Option {
	return func(r *Controller) { r.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Controller) { r.logger = l }
}

// WithLocale sets the language of archive titles.
func WithLocale(l note.Locale) Option {
	return func(r *Controller) { r.locale = l }
}

// WithFlightGroup shares single-flight state between controllers, so two
// controllers for the same user never roll over at once.
func WithFlightGroup(g *singleflight.Group) Option {
	return func(r *Controller) { r.flights = g }
}

// Controller runs the daily rollover for one user.
type Controller struct {
	uid     string
	store   docstore.Store
	notes   docstore.Collection
	history docstore.Collection
	local   kv.Store
	clock   timeutil.Clock
	logger  *zap.Logger
	locale  note.Locale
	flights *singleflight.Group

	state atomic.Int32

	mu   sync.Mutex
	task *schedule.Task
	base context.Context
}

// New returns an idle Controller for uid. The checkpoint is kept in local.
func New(uid string, store docstore.Store, local kv.Store, opts ...Option) (*Controller, error) {
	if uid == "" {
		return nil, ErrNoUser
	}
	c := &Controller{
		uid:     uid,
		store:   store,
		notes:   store.Collection(docstore.NotesPath(uid)),
		history: store.Collection(docstore.HistoryPath(uid)),
		local:   local,
		clock:   timeutil.System,
		logger:  zap.NewNop(),
		locale:  note.DefaultLocale,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.flights == nil {
		c.flights = &singleflight.Group{}
	}
	c.logger = c.logger.Named("rollover").With(zap.String("uid", uid))
	return c, nil
}

// UID returns the user the controller serves.
func (c *Controller) UID() string { return c.uid }

// State reports whether a rollover is in flight.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Checkpoint returns the instant of the last successful rollover on this
// device. The second result is false when there has been none.
func (c *Controller) Checkpoint(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := c.local.GetItem(ctx, kv.KeyLastDailyReset)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("rollover: read checkpoint: %w", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := note.ParseTime(raw)
	if err != nil {
		c.logger.Warn("ignoring unparseable checkpoint", zap.String("value", raw), zap.Error(err))
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// CheckAndRollover rolls over when the checkpoint is missing or older than
// the last local midnight, or when a live note was created before it.
// Calling it again right after a rollover does nothing.
func (c *Controller) CheckAndRollover(ctx context.Context) (Result, error) {
	return c.once(ctx, c.checkAndRollover)
}

// Rollover archives the live notes and clears them unconditionally. A call
// that joins an in-flight check which found nothing to do waits for it and
// then runs its own pass.
func (c *Controller) Rollover(ctx context.Context) (Result, error) {
	for {
		res, err := c.once(ctx, c.rollover)
		if err != nil || res.Ran {
			return res, err
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
	}
}

// once runs fn unless a pass for the same user is already in flight, in
// which case the caller waits for and shares that pass's outcome. The pass
// runs on a context detached from ctx's cancellation.
func (c *Controller) once(ctx context.Context, fn func(context.Context) (Result, error)) (Result, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(c.uid, func() (any, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		r, _ := res.Val.(Result)
		return r, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (c *Controller) checkAndRollover(ctx context.Context) (Result, error) {
	now := c.clock.Now()
	midnight := timeutil.LastMidnight(now)

	last, ok, err := c.Checkpoint(ctx)
	if err != nil {
		c.logger.Error("daily check failed", zap.Error(err))
		return Result{}, err
	}
	if !ok || last.Before(midnight) {
		c.logger.Debug("checkpoint predates midnight", zap.Time("checkpoint", last), zap.Time("midnight", midnight))
		return c.rollover(ctx)
	}

	stale, err := c.hasStaleNotes(ctx, midnight)
	if err != nil {
		c.logger.Error("daily check failed", zap.Error(err))
		return Result{}, err
	}
	if stale {
		c.logger.Info("live notes predate midnight", zap.Time("midnight", midnight))
		return c.rollover(ctx)
	}
	c.logger.Debug("already rolled over today", zap.Time("checkpoint", last))
	return Result{}, nil
}

func (c *Controller) hasStaleNotes(ctx context.Context, midnight time.Time) (bool, error) {
	docs, err := c.notes.List(ctx, docstore.Query{})
	if err != nil {
		return false, fmt.Errorf("rollover: list notes: %w", err)
	}
	for _, doc := range docs {
		n := note.FromDocument(doc)
		if !n.Visible() {
			continue
		}
		if created, ok := n.Created(); ok && created.Before(midnight) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Controller) rollover(ctx context.Context) (Result, error) {
	c.state.Store(int32(RollingOver))
	defer c.state.Store(int32(Idle))

	now := c.clock.Now()
	res := Result{Ran: true}

	docs, err := c.notes.List(ctx, docstore.Query{})
	if err != nil {
		return c.fail("read live notes", err)
	}
	notes := make([]note.Note, 0, len(docs))
	for _, doc := range docs {
		notes = append(notes, note.FromDocument(doc))
	}

	if rec, ok := note.Build(c.uid, notes, now, c.locale); ok {
		id, err := c.history.Add(ctx, rec.Fields())
		if err != nil {
			return c.fail("write archive record", err)
		}
		res.ArchiveID = id
		res.Archived = len(rec.Tasks)

		b := c.store.Batch()
		for _, doc := range docs {
			b.Delete(c.notes.Path(), doc.ID)
		}
		if err := b.Commit(ctx); err != nil {
			// The record stays; the next pass archives these notes again.
			return c.fail("clear live notes", err, zap.String("archive", id))
		}
		res.Deleted = len(docs)
		c.logger.Info("archived live notes",
			zap.String("archive", id), zap.Int("notes", res.Archived), zap.Time("date", rec.Date))
	} else {
		c.logger.Debug("no notes to archive", zap.Int("documents", len(docs)))
	}

	if err := c.local.SetItem(ctx, kv.KeyLastDailyReset, note.FormatTime(now)); err != nil {
		return c.fail("advance checkpoint", err)
	}
	res.At = now
	return res, nil
}

func (c *Controller) fail(step string, err error, fields ...zap.Field) (Result, error) {
	err = fmt.Errorf("rollover: %s: %w", step, err)
	c.logger.Error("rollover failed", append(fields, zap.Error(err))...)
	return Result{Ran: true}, err
}

// Start runs the startup check, then arms the midnight timer whatever its
// outcome. Each timer firing runs CheckAndRollover and re-arms for the next
// midnight. Values of ctx, not its cancellation, carry over to timer runs;
// use Stop to disarm.
func (c *Controller) Start(ctx context.Context) (Result, error) {
	res, err := c.CheckAndRollover(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = context.WithoutCancel(ctx)
	if c.task == nil {
		c.task = schedule.New(c.clock, timeutil.NextMidnight, c.onMidnight)
	}
	c.task.Start()
	if at, ok := c.task.Next(); ok {
		c.logger.Debug("armed midnight timer", zap.Time("at", at))
	}
	return res, err
}

// Stop disarms the timer. A rollover in flight runs to completion.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.task != nil {
		c.task.Stop()
	}
}

// NextRun returns the instant the timer is armed for.
func (c *Controller) NextRun() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.task == nil {
		return time.Time{}, false
	}
	return c.task.Next()
}

func (c *Controller) onMidnight() {
	c.mu.Lock()
	ctx := c.base
	c.mu.Unlock()
	c.logger.Info("midnight reached")
	// Failures are logged by the pass and retried on the next trigger.
	_, _ = c.CheckAndRollover(ctx)
}
