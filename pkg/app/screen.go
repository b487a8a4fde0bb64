package app

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/kv"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/projection"
	"tableflip.dev/daynotes/pkg/rollover"
	"tableflip.dev/daynotes/pkg/session"
	"tableflip.dev/daynotes/pkg/timeutil"
)

// Screen ties the per-user background work to a session: the rollover
// controller with its midnight timer and the live projection. Mount it when
// a user becomes available and Unmount it on sign out.
type Screen struct {
	Store  docstore.Store
	KV     kv.Store
	Clock  timeutil.Clock
	Logger *zap.Logger
	Locale note.Locale

	// Flights is shared by every controller the screen creates.
	Flights singleflight.Group

	mu         sync.Mutex
	uid        string
	controller *rollover.Controller
	projection *projection.Projection
}

// Mount starts the rollover controller and opens the projection for sc's
// user, tearing down any previous user first. The startup rollover check is
// a background flow: its failure is logged, not returned.
func (s *Screen) Mount(ctx context.Context, sc session.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controller != nil && s.uid == sc.UID {
		return nil
	}
	s.unmountLocked()

	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := s.Clock
	if clock == nil {
		clock = timeutil.System
	}

	c, err := rollover.New(sc.UID, s.Store, s.KV,
		rollover.WithClock(clock),
		rollover.WithLogger(logger),
		rollover.WithLocale(s.Locale),
		rollover.WithFlightGroup(&s.Flights),
	)
	if err != nil {
		return err
	}
	if _, err := c.Start(ctx); err != nil {
		logger.Warn("startup rollover check failed", zap.String("uid", sc.UID), zap.Error(err))
	}

	p := projection.New(s.Store, logger)
	if err := p.Open(ctx, sc.UID); err != nil {
		c.Stop()
		return err
	}
	s.uid, s.controller, s.projection = sc.UID, c, p
	return nil
}

// Unmount disarms the timer and closes the subscriptions. A rollover in
// flight completes on its own.
func (s *Screen) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmountLocked()
}

func (s *Screen) unmountLocked() {
	if s.controller != nil {
		s.controller.Stop()
	}
	if s.projection != nil {
		s.projection.Close()
	}
	s.uid, s.controller, s.projection = "", nil, nil
}

// Controller returns the mounted rollover controller, or nil.
func (s *Screen) Controller() *rollover.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller
}

// Projection returns the mounted projection, or nil.
func (s *Screen) Projection() *projection.Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projection
}
