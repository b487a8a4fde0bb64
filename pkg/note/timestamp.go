package note

import "time"

// DayLayout is the format of a note's `date` and an archive's `dateString`.
const DayLayout = "Mon Jan 02 2006"

// ParseTime parses an RFC3339 instant, with or without fractional seconds.
func ParseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// FormatTime renders v the way `addedAt` and `archivedAt` are stored.
func FormatTime(v time.Time) string {
	return v.UTC().Format(time.RFC3339Nano)
}

// SameDay reports whether a and b fall on the same calendar day in a's
// location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Day() == b.Day() && a.Month() == b.Month() && a.Year() == b.Year()
}
