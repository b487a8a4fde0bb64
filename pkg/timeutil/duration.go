package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultWindow is the history window used when none is provided.
	DefaultWindow = "1w"

	// AllTime disables window filtering.
	AllTime = "all"
)

var (
	windowPattern = regexp.MustCompile(`^\s*(\d+)\s*([a-z]+)`)
	unitMap       = map[string]time.Duration{
		"h":     time.Hour,
		"hr":    time.Hour,
		"hrs":   time.Hour,
		"hour":  time.Hour,
		"hours": time.Hour,
		"d":     24 * time.Hour,
		"day":   24 * time.Hour,
		"days":  24 * time.Hour,
		"w":     7 * 24 * time.Hour,
		"wk":    7 * 24 * time.Hour,
		"wks":   7 * 24 * time.Hour,
		"week":  7 * 24 * time.Hour,
		"weeks": 7 * 24 * time.Hour,
		"mo":    30 * 24 * time.Hour,
		"month": 30 * 24 * time.Hour,
	}
)

// Window is a trailing span of time ending at a reference instant.
type Window struct {
	Duration time.Duration
	Label    string
}

// Unbounded reports whether the window covers all time.
func (w Window) Unbounded() bool {
	return w.Duration <= 0
}

// Since returns the inclusive lower bound of the window relative to now, or
// the zero time for unbounded windows.
func (w Window) Since(now time.Time) time.Time {
	if w.Unbounded() {
		return time.Time{}
	}
	return now.Add(-w.Duration)
}

// Contains reports whether t falls in the window ending at now.
func (w Window) Contains(t, now time.Time) bool {
	if w.Unbounded() {
		return true
	}
	return !t.Before(w.Since(now))
}

// ParseWindow parses strings like "1w", "3d" or "1w2d6h". The empty string
// selects DefaultWindow and "all" selects an unbounded window.
func ParseWindow(input string) (Window, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		trimmed = DefaultWindow
	}
	if trimmed == AllTime {
		return Window{Label: AllTime}, nil
	}

	remaining := trimmed
	total := time.Duration(0)
	for len(remaining) > 0 {
		matches := windowPattern.FindStringSubmatch(remaining)
		if len(matches) != 3 {
			return Window{}, fmt.Errorf("invalid window segment %q", strings.TrimSpace(remaining))
		}
		value, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return Window{}, fmt.Errorf("invalid window value %q: %w", matches[1], err)
		}
		base, ok := unitMap[matches[2]]
		if !ok {
			return Window{}, fmt.Errorf("unsupported window unit %q", matches[2])
		}
		total += time.Duration(value) * base
		remaining = remaining[len(matches[0]):]
	}

	if total <= 0 {
		return Window{}, fmt.Errorf("window must be greater than zero")
	}
	return Window{Duration: total, Label: FormatWindow(total)}, nil
}

// FormatWindow renders a duration using week/day/hour tokens.
func FormatWindow(d time.Duration) string {
	if d <= 0 {
		return "0h"
	}
	units := []struct {
		label string
		value time.Duration
	}{
		{"w", 7 * 24 * time.Hour},
		{"d", 24 * time.Hour},
		{"h", time.Hour},
	}

	var b strings.Builder
	remaining := d
	for _, u := range units {
		if remaining < u.value {
			continue
		}
		count := remaining / u.value
		remaining -= count * u.value
		fmt.Fprintf(&b, "%d%s", count, u.label)
	}
	if b.Len() == 0 {
		return "0h"
	}
	return b.String()
}

// FormatCountdown renders d as HH:MM:SS, clamping negatives to zero.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
