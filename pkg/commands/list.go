package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/daynotes/pkg/commands/options"
	"tableflip.dev/daynotes/pkg/runner/list"
	"tableflip.dev/daynotes/pkg/session"
)

func addList(topLevel *cobra.Command) {
	io := &options.IDOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List today's notes, newest first.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return withUser(func(ctx context.Context, e *env, sc session.Context) error {
				s := list.List{
					Service: e.Service,
					UID:     sc.UID,
					Locale:  e.Config.Locale,
					Printer: e.printer(io.ShowID),
					JSON:    output.JSON,
				}
				return s.Do(ctx)
			})
		},
	}
	options.AddShowIDArgs(cmd, io)

	topLevel.AddCommand(cmd)
}
