package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tableflip.dev/daynotes/pkg/app"
	"tableflip.dev/daynotes/pkg/runner/watch"
	"tableflip.dev/daynotes/pkg/session"
	"tableflip.dev/daynotes/pkg/timeutil"
)

func addWatch(topLevel *cobra.Command) {
	var (
		history int
		plain   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show today's notes and history live, rolling over at midnight.",
		Long: `Keeps the journal open: notes and archived days are redrawn as they
change, from this or any other device, and at local midnight the day's notes
are archived. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return withUser(func(ctx context.Context, e *env, sc session.Context) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				screen := &app.Screen{
					Store:  e.Backend.Docs,
					KV:     e.Backend.KV,
					Clock:  timeutil.System,
					Logger: e.Logger,
					Locale: e.Config.Locale,
				}
				s := watch.Watch{
					Screen:  screen,
					Session: sc,
					Locale:  e.Config.Locale,
					Clear:   !plain && isatty.IsTerminal(os.Stdout.Fd()),
					History: history,
					Printer: e.printer(false),
				}
				return s.Do(ctx)
			})
		},
	}
	cmd.Flags().IntVar(&history, "history", watch.DefaultHistory, "Number of archived days to show.")
	cmd.Flags().BoolVar(&plain, "plain", false, "Append each redraw instead of clearing the terminal.")

	topLevel.AddCommand(cmd)
}
