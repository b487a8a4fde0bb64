package printers

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/daynotes/pkg/app"
)

const width = len("11 12 13 14 15 16 17") // an example week

// Report prints a summary of a history window: one calendar per month with
// archived days in bold, followed by the days themselves.
func (pp *PrettyPrint) Report(res app.ReportResult, label string) {
	f := color.New(color.Faint)
	until := res.Until.Local().Format("2006-01-02 15:04")
	if res.Since.IsZero() {
		pp.Title(fmt.Sprintf("Report · %s (until %s)", label, until))
	} else {
		pp.Title(fmt.Sprintf("Report · last %s (%s → %s)", label, res.Since.Local().Format("2006-01-02 15:04"), until))
	}

	if res.Days == 0 {
		_, _ = f.Fprintln(pp.out(), "  No archived days in this window.")
		pp.NewLine()
		return
	}
	_, _ = f.Fprintf(pp.out(), "%d days, %d notes\n\n", res.Days, res.Notes)

	for _, section := range res.Sections {
		count := make([]int, DaysIn(section.Month))
		for _, a := range section.Archives {
			d := a.Date.In(section.Month.Location()).Day()
			count[d-1] += len(a.Tasks)
		}
		pp.PrintMonthCount(section.Month, count)
		pp.History(section.Archives...)
	}
}

// PrintMonthCount prints the month of then as a calendar, bolding days with a
// non-zero count.
func (pp *PrettyPrint) PrintMonthCount(then time.Time, count []int) {
	d := StartDay(then)
	w := pp.out()

	tf := color.New(color.FgWhite, color.Italic)

	m := then.Month().String()
	mid := (width - len(m)) / 2
	_, _ = tf.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", mid), m, strings.Repeat(" ", width-mid-len(m)))

	days := DaysIn(then)

	// Pad out the start of the month.
	for i := time.Sunday; i < d; i++ {
		_, _ = fmt.Fprint(w, "   ")
	}

	l1 := color.New(color.Faint, color.FgWhite)
	l2 := color.New(color.Bold, color.FgHiWhite)

	for i := 0; i < days; i++ {
		if i < len(count) && count[i] > 0 {
			_, _ = l2.Fprintf(w, "%2d ", i+1)
		} else {
			_, _ = l1.Fprintf(w, "%2d ", i+1)
		}

		d++
		if d > time.Saturday {
			d = time.Sunday
			_, _ = fmt.Fprint(w, "\n")
		}
	}
	_, _ = fmt.Fprint(w, "\n\n")
}

func DaysIn(then time.Time) int {
	return time.Date(then.Year(), then.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartDay(then time.Time) time.Weekday {
	return time.Date(then.Year(), then.Month(), 1, 1, 0, 0, 0, time.UTC).Weekday()
}
