package app

import (
	"context"
	"time"

	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/timeutil"
)

// ReportSection groups archive records by calendar month.
type ReportSection struct {
	Month    time.Time
	Archives []note.Archive
}

// ReportResult summarizes the history inside a time window.
type ReportResult struct {
	Since    time.Time
	Until    time.Time
	Sections []ReportSection
	Days     int
	Notes    int
}

// Report returns the archive records of uid whose day falls in the window
// ending now, latest month first.
func (s *Service) Report(ctx context.Context, uid string, window timeutil.Window) (ReportResult, error) {
	until := s.clock().Now()
	all, err := s.History(ctx, uid)
	if err != nil {
		return ReportResult{}, err
	}
	res := ReportResult{Until: until}
	if !window.Unbounded() {
		res.Since = window.Since(until)
	}

	var current *ReportSection
	for _, a := range all {
		if !window.Contains(a.Date, until) {
			continue
		}
		local := a.Date.In(until.Location())
		month := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, until.Location())
		if current == nil || !current.Month.Equal(month) {
			res.Sections = append(res.Sections, ReportSection{Month: month})
			current = &res.Sections[len(res.Sections)-1]
		}
		current.Archives = append(current.Archives, a)
		res.Days++
		res.Notes += len(a.Tasks)
	}
	return res, nil
}
