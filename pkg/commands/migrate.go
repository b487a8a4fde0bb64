package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/daynotes/pkg/runner/migrate"
	"tableflip.dev/daynotes/pkg/session"
)

func addMigrate(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move notes kept by earlier releases into today's list.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return withUser(func(ctx context.Context, e *env, sc session.Context) error {
				s := migrate.Migrate{
					Service: e.Service,
					UID:     sc.UID,
					Printer: e.printer(false),
					JSON:    output.JSON,
				}
				return s.Do(ctx)
			})
		},
	}

	topLevel.AddCommand(cmd)
}
