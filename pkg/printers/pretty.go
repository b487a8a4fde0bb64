package printers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/session"
	"tableflip.dev/daynotes/pkg/timeutil"
)

// PrettyPrint renders journal data for a terminal.
type PrettyPrint struct {
	ShowID bool
	Locale note.Locale
	// Width wraps note text; zero uses 80 columns.
	Width int
	// Out defaults to color.Output.
	Out io.Writer
}

const (
	idWidth   = 22
	timeStamp = "15:04"
)

var (
	spacing = strings.Repeat(" ", idWidth)
)

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) width() int {
	if pp.Width <= 0 {
		return 80
	}
	return pp.Width
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = fmt.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprintln(pp.out(), title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = fmt.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprint(pp.out(), title)
	_, _ = c.Fprintf(pp.out(), " - %d", count)

	switch count {
	case 1:
		_, _ = c.Fprintln(pp.out(), " note")
	default:
		_, _ = c.Fprintln(pp.out(), " notes")
	}
}

func (pp *PrettyPrint) none() {
	f := color.New(color.Faint, color.Italic)
	if pp.ShowID {
		_, _ = fmt.Fprint(pp.out(), spacing)
	}
	_, _ = f.Fprint(pp.out(), " none\n\n")
}

// Notes prints live notes, one per line, with their time of day.
func (pp *PrettyPrint) Notes(notes ...note.Note) {
	if len(notes) == 0 {
		pp.none()
		return
	}

	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	f := color.New(color.Faint)

	for _, n := range notes {
		prefix := 6
		if pp.ShowID {
			_, _ = y.Fprint(pp.out(), padID(n.ID))
			prefix += idWidth
		}
		at := "--:--"
		if created, ok := n.Created(); ok {
			at = created.Local().Format(timeStamp)
		}
		_, _ = f.Fprint(pp.out(), at+" ")
		_, _ = fmt.Fprintln(pp.out(), pp.wrap(n.Text, prefix))
	}
	_, _ = fmt.Fprintln(pp.out(), "")
}

// wrap word-wraps text to the printer width and indents continuation lines
// under the first.
func (pp *PrettyPrint) wrap(text string, prefix int) string {
	avail := pp.width() - prefix
	if avail < 20 {
		avail = 20
	}
	lines := strings.SplitN(wordwrap.String(text, avail), "\n", 2)
	if len(lines) == 1 {
		return lines[0]
	}
	return lines[0] + "\n" + indent.String(lines[1], uint(prefix))
}

func padID(id string) string {
	if len(id) >= idWidth-1 {
		return id[:idWidth-2] + "… "
	}
	return id + strings.Repeat(" ", idWidth-len(id))
}

// History prints a table of archive records.
func (pp *PrettyPrint) History(archives ...note.Archive) {
	if len(archives) == 0 {
		pp.none()
		return
	}
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	if pp.ShowID {
		tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Day"), bold.Sprint("Notes"), bold.Sprint("Archived"))
	} else {
		tbl.AddRow(bold.Sprint("Day"), bold.Sprint("Notes"), bold.Sprint("Archived"))
	}
	for _, a := range archives {
		archived := archivedAt(a)
		if pp.ShowID {
			tbl.AddRow(a.ID, pp.title(a), len(a.Tasks), archived)
		} else {
			tbl.AddRow(pp.title(a), len(a.Tasks), archived)
		}
	}
	if pp.ShowID {
		tbl.RightAlign(2)
	} else {
		tbl.RightAlign(1)
	}

	_, _ = fmt.Fprintln(pp.out(), tbl)
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) title(a note.Archive) string {
	if pp.Locale == "" || pp.Locale == note.DefaultLocale {
		if a.Title != "" {
			return a.Title
		}
	}
	return note.Title(a.Date, pp.Locale)
}

func archivedAt(a note.Archive) string {
	t, err := note.ParseTime(a.ArchivedAt)
	if err != nil {
		return a.ArchivedAt
	}
	return t.Local().Format("2006-01-02 15:04")
}

// Archive prints one archive record and its frozen notes.
func (pp *PrettyPrint) Archive(a note.Archive) {
	pp.TitleWithCount(pp.title(a), len(a.Tasks))
	f := color.New(color.Faint)
	if at := archivedAt(a); at != "" {
		_, _ = f.Fprintf(pp.out(), "archived %s\n", at)
	}
	for _, task := range a.Tasks {
		_, _ = fmt.Fprintln(pp.out(), "  • "+pp.wrap(task, 4))
	}
	_, _ = fmt.Fprintln(pp.out(), "")
}

// Countdown prints the time left until the next rollover.
func (pp *PrettyPrint) Countdown(left string, next time.Time) {
	f := color.New(color.Faint)
	b := color.New(color.Bold)
	_, _ = f.Fprint(pp.out(), "next rollover in ")
	_, _ = b.Fprint(pp.out(), left)
	_, _ = f.Fprintf(pp.out(), " (%s)\n", next.Local().Format("Mon Jan 2 15:04"))
}

// Session prints the signed in user.
func (pp *PrettyPrint) Session(sc session.Context, now time.Time) {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Name"), sc.DisplayName)
	tbl.AddRow(bold.Sprint("Email"), sc.Email)
	tbl.AddRow(bold.Sprint("User"), sc.UID)
	if since, ok := sc.Since(now); ok {
		tbl.AddRow(bold.Sprint("Last login"), timeutil.FormatWindow(since)+" ago")
	}
	tbl.RightAlign(0)

	_, _ = fmt.Fprintln(pp.out(), tbl)
}

// JSON prints v as indented JSON.
func (pp *PrettyPrint) JSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(pp.out(), string(b))
	return err
}

// Clear homes the cursor and clears the terminal.
func (pp *PrettyPrint) Clear() {
	_, _ = fmt.Fprint(pp.out(), "\033[H\033[2J")
}
