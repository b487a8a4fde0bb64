package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/kv"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/session"
	"tableflip.dev/daynotes/pkg/timeutil"
)

const uid = "u1"

func newService(now time.Time) (*Service, *timeutil.Fake) {
	clock := timeutil.NewFake(now)
	n := 0
	store := docstore.NewMemory(docstore.WithClock(clock), docstore.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id%03d", n)
	}))
	return &Service{Store: store, Clock: clock}, clock
}

func addArchive(t *testing.T, s *Service, id string, day time.Time, tasks ...string) {
	t.Helper()
	a := note.Archive{Title: note.Title(day, note.English), Date: day, Tasks: tasks, UserID: uid, OriginalTaskCount: len(tasks)}
	if err := s.Store.Collection(docstore.HistoryPath(uid)).Set(context.Background(), id, a.Fields()); err != nil {
		t.Fatalf("seed archive: %v", err)
	}
}

func TestAddNote(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	s, _ := newService(now)

	n, err := s.AddNote(ctx, uid, "  buy milk  ")
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if n.Text != "buy milk" {
		t.Fatalf("expected trimmed text, got %q", n.Text)
	}
	if created, ok := n.Created(); !ok || !created.Equal(now) {
		t.Fatalf("expected createdAt %v, got %v (%v)", now, created, ok)
	}
	if n.Date != "Thu Mar 14 2024" {
		t.Fatalf("unexpected date string %q", n.Date)
	}

	if _, err := s.AddNote(ctx, uid, "   "); !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("expected ErrEmptyNote, got %v", err)
	}
	if _, err := s.AddNote(ctx, "", "x"); !errors.Is(err, ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
}

func TestNotesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, clock := newService(time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC))
	for _, text := range []string{"first", "second", "third"} {
		if _, err := s.AddNote(ctx, uid, text); err != nil {
			t.Fatalf("add: %v", err)
		}
		clock.Advance(time.Minute)
	}
	if err := s.Store.Collection(docstore.NotesPath(uid)).Set(ctx, "placeholder", docstore.Fields{
		note.FieldPlaceholder: true, note.FieldCreatedAt: docstore.TimestampOf(clock.Now()),
	}); err != nil {
		t.Fatalf("seed placeholder: %v", err)
	}

	notes, err := s.Notes(ctx, uid)
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	var got []string
	for _, n := range notes {
		got = append(got, n.Text)
	}
	if fmt.Sprint(got) != "[third second first]" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestDeleteNote(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC))
	n, err := s.AddNote(ctx, uid, "temp")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.DeleteNote(ctx, uid, n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteNote(ctx, uid, n.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteArchiveLeavesNotes(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC))
	if _, err := s.AddNote(ctx, uid, "still live"); err != nil {
		t.Fatalf("add: %v", err)
	}
	addArchive(t, s, "h1", time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC), "buy milk")

	a, err := s.Archive(ctx, uid, "h1")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if a.Title != "13 March 2024" || len(a.Tasks) != 1 {
		t.Fatalf("unexpected archive %+v", a)
	}

	if err := s.DeleteArchive(ctx, uid, "h1"); err != nil {
		t.Fatalf("delete archive: %v", err)
	}
	history, err := s.History(ctx, uid)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no history, got %d", len(history))
	}
	notes, err := s.Notes(ctx, uid)
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected live note to remain, got %d", len(notes))
	}
	if _, err := s.Archive(ctx, uid, "h1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	s, _ := newService(now)
	addArchive(t, s, "a", time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC), "x", "y")
	addArchive(t, s, "b", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), "z")
	addArchive(t, s, "c", time.Date(2024, 2, 27, 10, 0, 0, 0, time.UTC), "w")
	addArchive(t, s, "d", time.Date(2023, 12, 1, 10, 0, 0, 0, time.UTC), "old")

	week, err := timeutil.ParseWindow("1w")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := s.Report(ctx, uid, week)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if res.Days != 1 || res.Notes != 2 || len(res.Sections) != 1 {
		t.Fatalf("unexpected week report %+v", res)
	}
	if !res.Since.Equal(now.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("unexpected since %v", res.Since)
	}

	all, err := timeutil.ParseWindow(timeutil.AllTime)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err = s.Report(ctx, uid, all)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if res.Days != 4 || res.Notes != 5 {
		t.Fatalf("unexpected totals %+v", res)
	}
	if len(res.Sections) != 3 {
		t.Fatalf("expected 3 month sections, got %d", len(res.Sections))
	}
	if got := res.Sections[0]; got.Month.Month() != time.March || len(got.Archives) != 2 {
		t.Fatalf("unexpected first section %+v", got)
	}
	if !res.Since.IsZero() {
		t.Fatalf("unbounded report must have zero since, got %v", res.Since)
	}
}

func TestMigrateLegacyNotes(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC))
	legacy := s.Store.Collection(LegacyNotesPath(uid))
	for i, text := range []string{"one", "two"} {
		if err := legacy.Set(ctx, fmt.Sprintf("t%d", i), docstore.Fields{note.FieldText: text}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := s.Store.Collection(docstore.NotesPath(uid)).Set(ctx, "t1", docstore.Fields{note.FieldText: "already here"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := s.MigrateLegacyNotes(ctx, uid)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if res.Moved != 1 || res.Skipped != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	left, err := legacy.List(ctx, docstore.Query{})
	if err != nil {
		t.Fatalf("list legacy: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected legacy collection cleared, got %d", len(left))
	}
	doc, err := s.Store.Collection(docstore.NotesPath(uid)).Get(ctx, "t1")
	if err != nil || doc.Fields.String(note.FieldText) != "already here" {
		t.Fatalf("existing note overwritten: %v %v", doc, err)
	}

	res, err = s.MigrateLegacyNotes(ctx, uid)
	if err != nil || res != (MigrationResult{}) {
		t.Fatalf("second migration should be a no-op: %+v %v", res, err)
	}
}

func TestScreenMountRollsOverAndProjects(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 14, 0, 5, 0, 0, time.UTC)
	s, clock := newService(now)
	notes := s.Store.Collection(docstore.NotesPath(uid))
	for i, at := range []time.Time{now.Add(-14 * time.Hour), now.Add(-6 * time.Hour)} {
		if err := notes.Set(ctx, fmt.Sprintf("n%d", i), docstore.Fields{
			note.FieldText: fmt.Sprintf("note %d", i), note.FieldCreatedAt: docstore.TimestampOf(at),
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	screen := &Screen{Store: s.Store, KV: kv.NewMemory(), Clock: clock, Locale: note.English}
	if err := screen.Mount(ctx, session.Context{UID: uid}); err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer screen.Unmount()

	p := screen.Projection()
	waitFor(t, func() bool { return len(p.History()) == 1 && len(p.Notes()) == 0 })
	if got := p.History()[0].Tasks; fmt.Sprint(got) != "[note 0 note 1]" {
		t.Fatalf("unexpected archived tasks %v", got)
	}
	if at, ok := screen.Controller().NextRun(); !ok || !at.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next run %v %v", at, ok)
	}

	if _, err := s.AddNote(ctx, uid, "today"); err != nil {
		t.Fatalf("add: %v", err)
	}
	waitFor(t, func() bool { return len(p.Notes()) == 1 })

	clock.Advance(24 * time.Hour)
	waitFor(t, func() bool { return len(p.History()) == 2 && len(p.Notes()) == 0 })
}

func TestScreenRemountSwitchesUser(t *testing.T) {
	ctx := context.Background()
	s, clock := newService(time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))
	screen := &Screen{Store: s.Store, KV: kv.NewMemory(), Clock: clock}

	if err := screen.Mount(ctx, session.Context{UID: "u1"}); err != nil {
		t.Fatalf("mount u1: %v", err)
	}
	first := screen.Controller()
	if err := screen.Mount(ctx, session.Context{UID: "u1"}); err != nil || screen.Controller() != first {
		t.Fatalf("remounting the same user must keep the controller: %v", err)
	}

	if err := screen.Mount(ctx, session.Context{UID: "u2"}); err != nil {
		t.Fatalf("mount u2: %v", err)
	}
	if _, armed := first.NextRun(); armed {
		t.Fatal("previous user's timer still armed")
	}
	if got := screen.Projection().UID(); got != "u2" {
		t.Fatalf("projection open for %q", got)
	}
	if clock.Pending() != 1 {
		t.Fatalf("expected exactly one armed timer, got %d", clock.Pending())
	}

	screen.Unmount()
	if screen.Controller() != nil || screen.Projection() != nil {
		t.Fatal("unmount must drop controller and projection")
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected no armed timers, got %d", clock.Pending())
	}
	if err := screen.Mount(ctx, session.Context{}); err == nil {
		t.Fatal("expected error mounting without a user")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}
