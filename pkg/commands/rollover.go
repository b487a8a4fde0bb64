package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/daynotes/pkg/commands/options"
	"tableflip.dev/daynotes/pkg/rollover"
	runner "tableflip.dev/daynotes/pkg/runner/rollover"
	"tableflip.dev/daynotes/pkg/session"
	"tableflip.dev/daynotes/pkg/timeutil"
)

func addRollover(topLevel *cobra.Command) {
	ro := &options.RolloverOptions{}

	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Archive notes left over from an earlier day.",
		Long: options.Wrap80(`Checks whether today's notes were written before the last midnight, or
whether this device has not rolled over since then, and if so archives them
into your history and clears the live list. With --force the archive is made
right away.`),
		Example: `
daynotes rollover
daynotes rollover --force
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return withUser(func(ctx context.Context, e *env, sc session.Context) error {
				c, err := e.controller(sc.UID)
				if err != nil {
					return err
				}
				s := runner.Rollover{
					Controller: c,
					Force:      ro.Force,
					Printer:    e.printer(false),
					JSON:       output.JSON,
				}
				return s.Do(ctx)
			})
		},
	}
	options.AddRolloverArgs(cmd, ro)

	topLevel.AddCommand(cmd)
}

func (e *env) controller(uid string) (*rollover.Controller, error) {
	return rollover.New(uid, e.Backend.Docs, e.Backend.KV,
		rollover.WithClock(timeutil.System),
		rollover.WithLogger(e.Logger),
		rollover.WithLocale(e.Config.Locale),
	)
}
