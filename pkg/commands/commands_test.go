package commands

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/daynotes/pkg/app"
	"tableflip.dev/daynotes/pkg/authn"
	"tableflip.dev/daynotes/pkg/backend"
	"tableflip.dev/daynotes/pkg/config"
	"tableflip.dev/daynotes/pkg/docstore"
	"tableflip.dev/daynotes/pkg/kv"
	"tableflip.dev/daynotes/pkg/note"
	"tableflip.dev/daynotes/pkg/session"
)

func init() {
	color.NoColor = true
}

func setup(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, dir)
	t.Setenv("DAYNOTES_PATH", filepath.Join(dir, "data"))
	t.Setenv("DAYNOTES_BACKEND", config.BackendDisk)
	t.Setenv("DAYNOTES_AUTH_SECRET", "test-secret")
	t.Setenv("DAYNOTES_PASSWORD", "secret1")
	t.Setenv("DAYNOTES_LOG_LEVEL", "error")
}

func run(args ...string) error {
	cmd := New()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func inspect(t *testing.T, fn func(ctx context.Context, svc *app.Service, uid string)) {
	t.Helper()
	withBackend(t, func(ctx context.Context, b *backend.Backend, uid string) {
		fn(ctx, &app.Service{Store: b.Docs}, uid)
	})
}

func withBackend(t *testing.T, fn func(ctx context.Context, b *backend.Backend, uid string)) {
	t.Helper()
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	b, err := backend.Open(cfg)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	defer b.Close()
	p, err := authn.NewLocal(b.Docs, authn.Config{Secret: cfg.Auth.Secret})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	sc, ok := session.NewManager(p, b.Docs, b.KV).AutoLogin(ctx)
	if !ok {
		t.Fatalf("expected a cached session")
	}
	fn(ctx, b, sc.UID)
}

func TestCommandTree(t *testing.T) {
	root := New()
	for _, name := range []string{"signup", "login", "logout", "whoami", "profile", "add", "rm", "list",
		"history", "rollover", "watch", "migrate", "info", "version", "completion"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("missing command %q", name)
		}
	}
	for _, name := range []string{"list", "show", "rm"} {
		if c, _, err := root.Find([]string{"history", name}); err != nil || c.Name() != name {
			t.Errorf("missing command history %q", name)
		}
	}
}

func TestJournalFlow(t *testing.T) {
	setup(t)

	if err := run("add", "too early"); !errors.Is(err, ErrSignedOut) {
		t.Fatalf("expected ErrSignedOut before sign up, got %v", err)
	}
	if err := run("signup", "--name", "Aysel", "--email", "aysel@example.com"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := run("add", "buy", "milk"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := run("list"); err != nil {
		t.Fatalf("list: %v", err)
	}

	var noteID string
	inspect(t, func(ctx context.Context, svc *app.Service, uid string) {
		notes, err := svc.Notes(ctx, uid)
		if err != nil || len(notes) != 1 || notes[0].Text != "buy milk" {
			t.Fatalf("unexpected notes %+v (%v)", notes, err)
		}
		noteID = notes[0].ID
	})

	if err := run("add", "call the bank"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := run("rm", noteID); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if err := run("rollover", "--force"); err != nil {
		t.Fatalf("rollover: %v", err)
	}

	var archiveID string
	inspect(t, func(ctx context.Context, svc *app.Service, uid string) {
		notes, err := svc.Notes(ctx, uid)
		if err != nil || len(notes) != 0 {
			t.Fatalf("expected notes cleared, got %+v (%v)", notes, err)
		}
		history, err := svc.History(ctx, uid)
		if err != nil || len(history) != 1 {
			t.Fatalf("expected one archived day, got %+v (%v)", history, err)
		}
		if len(history[0].Tasks) != 1 || history[0].Tasks[0] != "call the bank" {
			t.Fatalf("unexpected archive %+v", history[0])
		}
		archiveID = history[0].ID
	})

	if err := run("history", "list", "--last", "all"); err != nil {
		t.Fatalf("history list: %v", err)
	}
	if err := run("history", "show", archiveID); err != nil {
		t.Fatalf("history show: %v", err)
	}
	if err := run("history", "rm", archiveID); err != nil {
		t.Fatalf("history rm: %v", err)
	}
	if err := run("info"); err != nil {
		t.Fatalf("info: %v", err)
	}

	if err := run("logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := run("whoami"); err == nil {
		t.Fatalf("expected whoami to fail after logout")
	}
	if err := run("login", "--email", "aysel@example.com"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := run("whoami"); err != nil {
		t.Fatalf("whoami: %v", err)
	}
}

func TestStartupArchivesYesterday(t *testing.T) {
	setup(t)
	if err := run("signup", "--name", "Aysel", "--email", "aysel@example.com"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	dayAgo := time.Now().Add(-24 * time.Hour)
	withBackend(t, func(ctx context.Context, b *backend.Backend, uid string) {
		err := b.Docs.Collection(docstore.NotesPath(uid)).Set(ctx, "old", docstore.Fields{
			note.FieldText:      "yesterday note",
			note.FieldCreatedAt: docstore.TimestampOf(dayAgo),
		})
		if err != nil {
			t.Fatalf("seed note: %v", err)
		}
		if err := b.KV.SetItem(ctx, kv.KeyLastDailyReset, note.FormatTime(dayAgo)); err != nil {
			t.Fatalf("seed checkpoint: %v", err)
		}
	})

	if err := run("list"); err != nil {
		t.Fatalf("list: %v", err)
	}
	inspect(t, func(ctx context.Context, svc *app.Service, uid string) {
		notes, err := svc.Notes(ctx, uid)
		if err != nil || len(notes) != 0 {
			t.Fatalf("expected yesterday's note archived before list, got %+v (%v)", notes, err)
		}
	})

	if err := run("add", "today note"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := run("rollover"); err != nil {
		t.Fatalf("rollover: %v", err)
	}

	inspect(t, func(ctx context.Context, svc *app.Service, uid string) {
		history, err := svc.History(ctx, uid)
		if err != nil || len(history) != 1 {
			t.Fatalf("expected one archived day, got %+v (%v)", history, err)
		}
		if got := history[0].Tasks; len(got) != 1 || got[0] != "yesterday note" {
			t.Fatalf("archive mixes days: %q", got)
		}
		notes, err := svc.Notes(ctx, uid)
		if err != nil || len(notes) != 1 || notes[0].Text != "today note" {
			t.Fatalf("expected today's note still live, got %+v (%v)", notes, err)
		}
	})
}

func TestLoginRunsStartupCheck(t *testing.T) {
	setup(t)
	if err := run("signup", "--name", "Aysel", "--email", "aysel@example.com"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	withBackend(t, func(ctx context.Context, b *backend.Backend, uid string) {
		err := b.Docs.Collection(docstore.NotesPath(uid)).Set(ctx, "old", docstore.Fields{
			note.FieldText:      "left over",
			note.FieldCreatedAt: docstore.TimestampOf(time.Now().Add(-24 * time.Hour)),
		})
		if err != nil {
			t.Fatalf("seed note: %v", err)
		}
	})
	if err := run("logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if err := run("login", "--email", "aysel@example.com"); err != nil {
		t.Fatalf("login: %v", err)
	}
	inspect(t, func(ctx context.Context, svc *app.Service, uid string) {
		history, err := svc.History(ctx, uid)
		if err != nil || len(history) != 1 || history[0].Tasks[0] != "left over" {
			t.Fatalf("expected login to archive the left over note, got %+v (%v)", history, err)
		}
	})
}

func TestJSONErrors(t *testing.T) {
	setup(t)
	if err := run("--json", "list"); err != nil {
		t.Fatalf("--json should report errors on stdout, got %v", err)
	}
}
