package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/daynotes/pkg/commands/options"
	"tableflip.dev/daynotes/pkg/runner/history"
	"tableflip.dev/daynotes/pkg/session"
)

func addHistory(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived days.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	addHistoryList(cmd)
	addHistoryShow(cmd)
	addHistoryRemove(cmd)

	topLevel.AddCommand(cmd)
}

func addHistoryList(parent *cobra.Command) {
	io := &options.IDOptions{}
	wo := &options.WindowOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "report"},
		Short:   "List archived days in a time window, grouped by month.",
		Example: `
daynotes history list
daynotes history list --last 3d
daynotes history list --last all --show-id
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			window, err := wo.Window()
			if err != nil {
				return output.HandleError(err)
			}
			return withUser(func(ctx context.Context, e *env, sc session.Context) error {
				s := history.List{
					Service: e.Service,
					UID:     sc.UID,
					Window:  window,
					Printer: e.printer(io.ShowID),
					JSON:    output.JSON,
				}
				return s.Do(ctx)
			})
		},
	}
	options.AddShowIDArgs(cmd, io)
	options.AddWindowArgs(cmd, wo)

	parent.AddCommand(cmd)
}

func addHistoryShow(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "show <id>",
		Short:             "Show the notes of an archived day.",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: archiveCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return withUser(func(ctx context.Context, e *env, sc session.Context) error {
				s := history.Show{
					Service: e.Service,
					UID:     sc.UID,
					ID:      args[0],
					Printer: e.printer(false),
					JSON:    output.JSON,
				}
				return s.Do(ctx)
			})
		},
	}

	parent.AddCommand(cmd)
}

func addHistoryRemove(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "rm <id>...",
		Short:             "Delete archived days. Today's notes are not affected.",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: archiveCompletions,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return withUser(func(ctx context.Context, e *env, sc session.Context) error {
				s := history.Remove{
					Service: e.Service,
					UID:     sc.UID,
					IDs:     args,
				}
				return s.Do(ctx)
			})
		},
	}

	parent.AddCommand(cmd)
}
