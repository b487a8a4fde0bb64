package timeutil

import "time"

// Timer is a pending callback armed by a Clock.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time so day-boundary logic can be driven in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// System is the real wall clock.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// LastMidnight returns 00:00:00 of t's day in t's location.
func LastMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextMidnight returns 00:00:00 of the day after t in t's location. Day
// arithmetic goes through time.Date so DST transitions are honored.
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// Yesterday is t shifted back one calendar day.
func Yesterday(t time.Time) time.Time {
	return t.AddDate(0, 0, -1)
}
