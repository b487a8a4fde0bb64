package note

import (
	"time"

	"tableflip.dev/daynotes/pkg/docstore"
)

// Archive is one consolidated day of notes. Its tasks never change after it
// is written.
type Archive struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Date              time.Time          `json:"date"`
	DateString        string             `json:"dateString"`
	Tasks             []string           `json:"tasks"`
	UserID            string             `json:"userId"`
	CreatedAt         docstore.Timestamp `json:"createdAt"`
	ArchivedAt        string             `json:"archivedAt"`
	OriginalTaskCount int                `json:"originalTaskCount"`
	Placeholder       bool               `json:"placeholder,omitempty"`
}

// ArchiveFromDocument reads an archive record.
func ArchiveFromDocument(doc docstore.Document) Archive {
	a := Archive{
		ID:                doc.ID,
		Title:             doc.Fields.String(FieldTitle),
		DateString:        doc.Fields.String(FieldDateString),
		Tasks:             doc.Fields.Strings(FieldTasks),
		UserID:            doc.Fields.String(FieldUserID),
		ArchivedAt:        doc.Fields.String(FieldArchivedAt),
		OriginalTaskCount: doc.Fields.Int(FieldOriginalTaskCount),
		Placeholder:       doc.Fields.Bool(FieldPlaceholder),
	}
	if ts, ok := doc.Fields.Timestamp(FieldDate); ok {
		a.Date = ts.Time()
	}
	if ts, ok := doc.Fields.Timestamp(FieldCreatedAt); ok {
		a.CreatedAt = ts
	}
	return a
}

// Visible reports whether the record is shown in history.
func (a Archive) Visible() bool {
	return !a.Placeholder && len(a.Tasks) > 0
}

// Fields returns the document to write for a new record. createdAt is
// issued by the store.
func (a Archive) Fields() docstore.Fields {
	return docstore.Fields{
		FieldTitle:             a.Title,
		FieldDate:              docstore.TimestampOf(a.Date),
		FieldDateString:        a.DateString,
		FieldTasks:             append([]string(nil), a.Tasks...),
		FieldUserID:            a.UserID,
		FieldCreatedAt:         docstore.ServerTimestamp,
		FieldArchivedAt:        a.ArchivedAt,
		FieldOriginalTaskCount: a.OriginalTaskCount,
	}
}

// Build consolidates notes, in the order given, into an archive for uid
// rolled over at now. Notes that are not Visible are left out. The second
// result is false when nothing qualifies.
//
// The record's date is the earliest creation instant among the archived
// notes, or one calendar day before now when none of them has one.
func Build(uid string, notes []Note, now time.Time, lang Locale) (Archive, bool) {
	var (
		tasks    []string
		earliest time.Time
		found    bool
	)
	for _, n := range notes {
		if !n.Visible() {
			continue
		}
		tasks = append(tasks, n.Text)
		if t, ok := n.Created(); ok && (!found || t.Before(earliest)) {
			earliest, found = t, true
		}
	}
	if len(tasks) == 0 {
		return Archive{}, false
	}
	if !found {
		earliest = now.AddDate(0, 0, -1)
	}
	earliest = earliest.In(now.Location())
	return Archive{
		Title:             Title(earliest, lang),
		Date:              earliest,
		DateString:        earliest.Format(DayLayout),
		Tasks:             tasks,
		UserID:            uid,
		ArchivedAt:        FormatTime(now),
		OriginalTaskCount: len(tasks),
	}, true
}
