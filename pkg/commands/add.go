package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/daynotes/pkg/commands/options"
	"tableflip.dev/daynotes/pkg/runner/add"
	"tableflip.dev/daynotes/pkg/session"
)

func addAdd(topLevel *cobra.Command) {
	io := &options.IDOptions{}

	cmd := &cobra.Command{
		Use:   "add <note>",
		Short: "Add a note to today.",
		Example: `
daynotes add call the bank
daynotes add "buy bread, milk"
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return withUser(func(ctx context.Context, e *env, sc session.Context) error {
				s := add.Add{
					Service: e.Service,
					UID:     sc.UID,
					Message: strings.Join(args, " "),
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
