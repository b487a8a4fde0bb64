package watch

import (
	"context"
	"errors"
	"time"

	"tableflip.dev/daynotes/pkg/app"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/printers"
	"tableflip.dev/daynotes/pkg/projection"
	"tableflip.dev/daynotes/pkg/session"
	"tableflip.dev/daynotes/pkg/timeutil"
)

// DefaultHistory is how many archived days the screen shows.
const DefaultHistory = 7

// Watch mounts the journal screen for a user and redraws it whenever the
// live notes or history change until ctx is done. When Clear is set the
// terminal is redrawn in place and the countdown ticks every Tick.
type Watch struct {
	Screen  *app.Screen
	Session session.Context
	Clock   timeutil.Clock
	Locale  note.Locale
	Clear   bool
	Tick    time.Duration
	History int

	Printer printers.PrettyPrint
}

func (n *Watch) Do(ctx context.Context) error {
	if n.Screen == nil {
		return errors.New("can not watch, no screen")
	}
	clock := n.Clock
	if clock == nil {
		clock = timeutil.System
	}
	if n.Tick <= 0 {
		n.Tick = time.Second
	}
	if n.History <= 0 {
		n.History = DefaultHistory
	}

	if err := n.Screen.Mount(ctx, n.Session); err != nil {
		return err
	}
	defer n.Screen.Unmount()

	p := n.Screen.Projection()
	changed := make(chan projection.Kind, 1)
	p.OnChange(func(k projection.Kind) {
		select {
		case changed <- k:
		default:
		}
	})

	n.render(p, clock)

	var tick <-chan time.Time
	if n.Clear {
		t := time.NewTicker(n.Tick)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			n.render(p, clock)
		case <-tick:
			n.render(p, clock)
		}
	}
}

func (n *Watch) render(p *projection.Projection, clock timeutil.Clock) {
	pp := &n.Printer
	if n.Clear {
		pp.Clear()
	}
	now := clock.Now()

	notes := p.Notes()
	pp.TitleWithCount(note.Title(now, n.Locale), len(notes))
	pp.Notes(notes...)

	history := p.History()
	if len(history) > n.History {
		history = history[:n.History]
	}
	pp.Title("History")
	pp.History(history...)

	if c := n.Screen.Controller(); c != nil {
		if next, ok := c.NextRun(); ok {
			pp.Countdown(timeutil.FormatCountdown(next.Sub(now)), next)
		}
	}
}
