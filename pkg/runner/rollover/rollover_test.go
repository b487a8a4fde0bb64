package rollover

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"tableflip.dev/daynotes/pkg/app"
	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/kv"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/printers"
	"tableflip.dev/daynotes/pkg/rollover"
	"tableflip.dev/daynotes/pkg/timeutil"
)

func TestCheckThenForce(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewFake(time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC))
	store := docstore.NewMemory(docstore.WithClock(clock))
	local := kv.NewMemory()

	c, err := rollover.New("u1", store, local, rollover.WithClock(clock), rollover.WithLocale(note.English))
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	// First check on a device always runs and just sets the checkpoint.
	if _, err := c.CheckAndRollover(ctx); err != nil {
		t.Fatalf("first check: %v", err)
	}

	svc := &app.Service{Store: store, Clock: clock}
	if _, err := svc.AddNote(ctx, "u1", "today's note"); err != nil {
		t.Fatalf("add: %v", err)
	}

	var buf bytes.Buffer
	r := Rollover{Controller: c, Printer: printers.PrettyPrint{Out: &buf}, JSON: true}
	if err := r.Do(ctx); err != nil {
		t.Fatalf("check: %v", err)
	}
	var res rollover.Result
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.Ran {
		t.Fatalf("a note from today should not roll over: %+v", res)
	}

	buf.Reset()
	r.Force = true
	if err := r.Do(ctx); err != nil {
		t.Fatalf("force: %v", err)
	}
	res = rollover.Result{}
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !res.Ran || res.Archived != 1 || res.ArchiveID == "" {
		t.Fatalf("expected a forced archive, got %+v", res)
	}
}

func TestNoController(t *testing.T) {
	r := Rollover{}
	if err := r.Do(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
