package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/timeutil"
)

// Service provides the journal operations of one signed in user.
// It wraps the document store and note transformations so the CLI and the
// watch screen share logic.
type Service struct {
	Store  docstore.Store
	Clock  timeutil.Clock
	Logger *zap.Logger
}

var (
	// ErrEmptyNote is returned by AddNote for blank text.
	ErrEmptyNote = errors.New("app: note text required")

	// ErrNoUser is returned when no user id is given.
	ErrNoUser = errors.New("app: not signed in")
)

func (s *Service) check(uid string) error {
	if s.Store == nil {
		return errors.New("app: no store configured")
	}
	if uid == "" {
		return ErrNoUser
	}
	return nil
}

func (s *Service) clock() timeutil.Clock {
	if s.Clock == nil {
		return timeutil.System
	}
	return s.Clock
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// AddNote stores a new live note for uid.
func (s *Service) AddNote(ctx context.Context, uid, text string) (note.Note, error) {
	if err := s.check(uid); err != nil {
		return note.Note{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return note.Note{}, ErrEmptyNote
	}
	notes := s.Store.Collection(docstore.NotesPath(uid))
	id, err := notes.Add(ctx, note.NewFields(text, s.clock().Now()))
	if err != nil {
		return note.Note{}, err
	}
	doc, err := notes.Get(ctx, id)
	if err != nil {
		return note.Note{}, err
	}
	s.logger().Debug("note added", zap.String("uid", uid), zap.String("id", id))
	return note.FromDocument(doc), nil
}

// DeleteNote removes a live note.
func (s *Service) DeleteNote(ctx context.Context, uid, id string) error {
	if err := s.check(uid); err != nil {
		return err
	}
	return s.remove(ctx, s.Store.Collection(docstore.NotesPath(uid)), id)
}

// DeleteArchive removes a whole archive record. Live notes are untouched.
func (s *Service) DeleteArchive(ctx context.Context, uid, id string) error {
	if err := s.check(uid); err != nil {
		return err
	}
	return s.remove(ctx, s.Store.Collection(docstore.HistoryPath(uid)), id)
}

func (s *Service) remove(ctx context.Context, c docstore.Collection, id string) error {
	if _, err := c.Get(ctx, id); err != nil {
		return fmt.Errorf("app: %s: %w", id, err)
	}
	return c.Delete(ctx, id)
}

// Notes lists the visible live notes of uid, newest first.
func (s *Service) Notes(ctx context.Context, uid string) ([]note.Note, error) {
	if err := s.check(uid); err != nil {
		return nil, err
	}
	docs, err := s.Store.Collection(docstore.NotesPath(uid)).
		List(ctx, docstore.OrderBy(note.FieldCreatedAt, docstore.Descending))
	if err != nil {
		return nil, err
	}
	out := make([]note.Note, 0, len(docs))
	for _, d := range docs {
		if n := note.FromDocument(d); n.Visible() {
			out = append(out, n)
		}
	}
	return out, nil
}

// History lists the visible archive records of uid, latest day first.
func (s *Service) History(ctx context.Context, uid string) ([]note.Archive, error) {
	if err := s.check(uid); err != nil {
		return nil, err
	}
	docs, err := s.Store.Collection(docstore.HistoryPath(uid)).
		List(ctx, docstore.OrderBy(note.FieldDate, docstore.Descending))
	if err != nil {
		return nil, err
	}
	out := make([]note.Archive, 0, len(docs))
	for _, d := range docs {
		if a := note.ArchiveFromDocument(d); a.Visible() {
			out = append(out, a)
		}
	}
	return out, nil
}

// Archive returns one archive record.
func (s *Service) Archive(ctx context.Context, uid, id string) (note.Archive, error) {
	if err := s.check(uid); err != nil {
		return note.Archive{}, err
	}
	doc, err := s.Store.Collection(docstore.HistoryPath(uid)).Get(ctx, id)
	if err != nil {
		return note.Archive{}, fmt.Errorf("app: %s: %w", id, err)
	}
	return note.ArchiveFromDocument(doc), nil
}
