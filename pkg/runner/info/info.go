package info

import (
	"context"
	"fmt"
	"os"

	"tableflip.dev/daynotes/pkg/app"
	"tableflip.dev/daynotes/pkg/config"
	"tableflip.dev/daynotes/pkg/rollover"
	"tableflip.dev/daynotes/pkg/session"
)

// Info prints where data is kept and, when signed in, what the journal holds.
type Info struct {
	Config   *config.File
	Service  *app.Service
	Sessions *session.Manager
	// Controller reads the rollover checkpoint; nil when signed out.
	Controller *rollover.Controller
}

func (n *Info) Do(ctx context.Context) error {

	if override := os.Getenv(config.EnvConfigPath); override != "" {
		fmt.Println(config.EnvConfigPath+" found on env, using ", override)
	} else {
		fmt.Println(config.EnvConfigPath + " env var not set")
	}

	if n.Config == nil {
		var err error
		n.Config, err = config.Load()
		if err != nil {
			return err
		}
	}

	if n.Config.Used != "" {
		fmt.Println("Config.file: ", n.Config.Used)
	}
	fmt.Println("Config.path: ", n.Config.BasePath())
	fmt.Println("Config.backend: ", n.Config.Backend)
	if n.Config.Backend == config.BackendRedis {
		fmt.Println("Config.redis: ", n.Config.Redis.URL, n.Config.Redis.Prefix)
	}
	fmt.Println("Config.locale: ", n.Config.Locale)

	if n.Sessions == nil || n.Service == nil {
		return nil
	}
	sc, ok := n.Sessions.AutoLogin(ctx)
	if !ok {
		fmt.Println("Signed in: no")
		return nil
	}
	fmt.Println("Signed in: ", sc.Email, "("+sc.UID+")")

	notes, err := n.Service.Notes(ctx, sc.UID)
	if err != nil {
		return err
	}
	history, err := n.Service.History(ctx, sc.UID)
	if err != nil {
		return err
	}
	fmt.Printf("Notes: %d\n", len(notes))
	fmt.Printf("Archived days: %d\n", len(history))

	if n.Controller != nil {
		at, ok, err := n.Controller.Checkpoint(ctx)
		switch {
		case err != nil:
			return err
		case ok:
			fmt.Println("Last rollover: ", at.Local().Format("2006-01-02 15:04"))
		default:
			fmt.Println("Last rollover: never")
		}
	}
	return nil
}
