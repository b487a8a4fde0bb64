package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/daynotes/pkg/runner/rm"
	"tableflip.dev/daynotes/pkg/session"
)

func addRemove(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Remove notes from today.",
		Example: `
daynotes list --show-id
daynotes rm 5b0f6f6e-0c4a-4f0e-9d8e-6e1d2b2f0a11
`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: noteCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return withUser(func(ctx context.Context, e *env, sc session.Context) error {
				s := rm.Remove{
					Service: e.Service,
					UID:     sc.UID,
					IDs:     args,
				}
				return s.Do(ctx)
			})
		},
	}

	topLevel.AddCommand(cmd)
}
