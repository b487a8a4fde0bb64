// Package note holds the two record kinds of a journal: live notes for the
// current day and the archive records a rollover consolidates them into.
package note

import (
	"strings"
	"time"

	"tableflip.dev/daynotes/pkg/docstore"
)

// Stored field names.
const (
	FieldText              = "text"
	FieldCreatedAt         = "createdAt"
	FieldAddedAt           = "addedAt"
	FieldDate              = "date"
	FieldPlaceholder       = "placeholder"
	FieldTitle             = "title"
	FieldDateString        = "dateString"
	FieldTasks             = "tasks"
	FieldUserID            = "userId"
	FieldArchivedAt        = "archivedAt"
	FieldOriginalTaskCount = "originalTaskCount"
)

// Note is one live entry of the current day.
type Note struct {
	ID          string             `json:"id"`
	Text        string             `json:"text"`
	CreatedAt   docstore.Timestamp `json:"createdAt"`
	AddedAt     string             `json:"addedAt,omitempty"`
	Date        string             `json:"date,omitempty"`
	Placeholder bool               `json:"placeholder,omitempty"`
}

// FromDocument reads a note. Missing or malformed fields are left zero.
func FromDocument(doc docstore.Document) Note {
	n := Note{
		ID:          doc.ID,
		Text:        doc.Fields.String(FieldText),
		AddedAt:     doc.Fields.String(FieldAddedAt),
		Date:        doc.Fields.String(FieldDate),
		Placeholder: doc.Fields.Bool(FieldPlaceholder),
	}
	if ts, ok := doc.Fields.Timestamp(FieldCreatedAt); ok {
		n.CreatedAt = ts
	}
	return n
}

// Created returns the note's creation instant: the store timestamp when
// present, else the parsed addedAt string.
func (n Note) Created() (time.Time, bool) {
	if !n.CreatedAt.IsZero() {
		return n.CreatedAt.Time(), true
	}
	if n.AddedAt != "" {
		if t, err := ParseTime(n.AddedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Visible reports whether the note is shown and archived: user facing with
// non-blank text.
func (n Note) Visible() bool {
	return !n.Placeholder && strings.TrimSpace(n.Text) != ""
}

// NewFields returns the document for a note with text added at now.
func NewFields(text string, now time.Time) docstore.Fields {
	return docstore.Fields{
		FieldText:      text,
		FieldCreatedAt: docstore.ServerTimestamp,
		FieldAddedAt:   FormatTime(now),
		FieldDate:      now.Format(DayLayout),
	}
}
