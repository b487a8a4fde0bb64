package projection

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/note"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func ts(hour int) docstore.Timestamp {
	return docstore.TimestampOf(time.Date(2024, 3, 14, hour, 0, 0, 0, time.UTC))
}

func seed(t *testing.T, s docstore.Store, uid string) {
	t.Helper()
	ctx := context.Background()
	notes := s.Collection(docstore.NotesPath(uid))
	require.NoError(t, notes.Set(ctx, "a", docstore.Fields{note.FieldText: "first", note.FieldCreatedAt: ts(8)}))
	require.NoError(t, notes.Set(ctx, "b", docstore.Fields{note.FieldText: "second", note.FieldCreatedAt: ts(9)}))
	require.NoError(t, notes.Set(ctx, "c", docstore.Fields{note.FieldText: "  ", note.FieldCreatedAt: ts(10)}))
	require.NoError(t, notes.Set(ctx, "p", docstore.Fields{note.FieldText: "init", note.FieldPlaceholder: true, note.FieldCreatedAt: ts(11)}))

	history := s.Collection(docstore.HistoryPath(uid))
	require.NoError(t, history.Set(ctx, "h1", docstore.Fields{note.FieldDate: ts(1), note.FieldTasks: []string{"old"}}))
	require.NoError(t, history.Set(ctx, "h2", docstore.Fields{note.FieldDate: ts(2), note.FieldTasks: []string{"newer", "day"}}))
	require.NoError(t, history.Set(ctx, "h3", docstore.Fields{note.FieldDate: ts(3), note.FieldTasks: []string{}}))
}

func noteTexts(p *Projection) []string {
	var out []string
	for _, n := range p.Notes() {
		out = append(out, n.Text)
	}
	return out
}

func historyIDs(p *Projection) []string {
	var out []string
	for _, a := range p.History() {
		out = append(out, a.ID)
	}
	return out
}

func TestOpenMirrorsFilteredSnapshots(t *testing.T) {
	s := docstore.NewMemory()
	seed(t, s, "u1")
	p := New(s, nil)
	require.NoError(t, p.Open(context.Background(), "u1"))
	defer p.Close()

	require.Eventually(t, func() bool { return len(p.Notes()) == 2 && len(p.History()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"second", "first"}, noteTexts(p))
	assert.Equal(t, []string{"h2", "h1"}, historyIDs(p))
	assert.Equal(t, "u1", p.UID())
}

func TestSnapshotsFollowChanges(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemory()
	seed(t, s, "u1")
	p := New(s, nil)

	var changes atomic.Int32
	p.OnChange(func(Kind) { changes.Add(1) })
	require.NoError(t, p.Open(ctx, "u1"))
	defer p.Close()
	require.Eventually(t, func() bool { return len(p.Notes()) == 2 }, waitFor, tick)

	_, err := s.Collection(docstore.NotesPath("u1")).Add(ctx, docstore.Fields{
		note.FieldText: "third", note.FieldCreatedAt: ts(12),
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(p.Notes()) == 3 }, waitFor, tick)
	assert.Equal(t, "third", p.Notes()[0].Text)
	assert.GreaterOrEqual(t, changes.Load(), int32(3))
}

func TestDeletingArchiveLeavesNotes(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemory()
	seed(t, s, "u1")
	p := New(s, nil)
	require.NoError(t, p.Open(ctx, "u1"))
	defer p.Close()
	require.Eventually(t, func() bool { return len(p.History()) == 2 && len(p.Notes()) == 2 }, waitFor, tick)

	require.NoError(t, s.Collection(docstore.HistoryPath("u1")).Delete(ctx, "h2"))
	require.Eventually(t, func() bool { return len(p.History()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"h1"}, historyIDs(p))
	assert.Len(t, p.Notes(), 2)
}

func TestOpenSwitchesUser(t *testing.T) {
	ctx := context.Background()
	s := docstore.NewMemory()
	seed(t, s, "u1")
	require.NoError(t, s.Collection(docstore.NotesPath("u2")).Set(ctx, "x", docstore.Fields{
		note.FieldText: "other user", note.FieldCreatedAt: ts(8),
	}))

	p := New(s, nil)
	require.NoError(t, p.Open(ctx, "u1"))
	require.Eventually(t, func() bool { return len(p.Notes()) == 2 }, waitFor, tick)

	require.NoError(t, p.Open(ctx, "u2"))
	defer p.Close()
	require.Eventually(t, func() bool { return len(p.Notes()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"other user"}, noteTexts(p))
	assert.Empty(t, p.History())

	// u1's subscription is gone: its writes no longer reach the projection.
	_, err := s.Collection(docstore.NotesPath("u1")).Add(ctx, docstore.Fields{
		note.FieldText: "late", note.FieldCreatedAt: ts(13),
	})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"other user"}, noteTexts(p))
}

func TestCloseClearsState(t *testing.T) {
	s := docstore.NewMemory()
	seed(t, s, "u1")
	p := New(s, nil)
	require.NoError(t, p.Open(context.Background(), "u1"))
	require.Eventually(t, func() bool { return len(p.Notes()) == 2 }, waitFor, tick)

	p.Close()
	assert.Empty(t, p.Notes())
	assert.Empty(t, p.History())
	assert.Empty(t, p.UID())
	p.Close()
}

func TestOpenRequiresUser(t *testing.T) {
	p := New(docstore.NewMemory(), nil)
	assert.ErrorIs(t, p.Open(context.Background(), ""), ErrNoUser)
}

func TestOpenOnClosedStore(t *testing.T) {
	s := docstore.NewMemory()
	require.NoError(t, s.Close())
	p := New(s, nil)
	assert.ErrorIs(t, p.Open(context.Background(), "u1"), docstore.ErrClosed)
}

func TestHistoryCopiesAreIndependent(t *testing.T) {
	s := docstore.NewMemory()
	seed(t, s, "u1")
	p := New(s, nil)
	require.NoError(t, p.Open(context.Background(), "u1"))
	defer p.Close()
	require.Eventually(t, func() bool { return len(p.History()) == 2 }, waitFor, tick)

	h := p.History()
	h[0].Tasks[0] = "edited"
	assert.Equal(t, "newer", p.History()[0].Tasks[0])
}
