package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/daynotes/pkg/runner/info"
)

func addInfo(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Details about the configuration and where notes are stored.",
		Example: `
daynotes info
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return withEnv(func(ctx context.Context, e *env) error {
				s := info.Info{
					Config:   e.Config,
					Service:  e.Service,
					Sessions: e.Sessions,
				}
				if sc, ok := e.Sessions.AutoLogin(ctx); ok {
					c, err := e.controller(sc.UID)
					if err != nil {
						return err
					}
					s.Controller = c
				}
				return s.Do(ctx)
			})
		},
	}

	topLevel.AddCommand(cmd)
}
