package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"tableflip.dev/daynotes/pkg/commands/options"
	"tableflip.dev/daynotes/pkg/runner/account"
	"tableflip.dev/daynotes/pkg/session"
)

func addSignUp(topLevel *cobra.Command) {
	ao := &options.AccountOptions{}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in on this device.",
		Example: `
daynotes signup --name Aysel --email aysel@example.com
DAYNOTES_PASSWORD=secret daynotes signup -n Aysel -e aysel@example.com
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			if err := ao.ResolvePassword(os.Stdin, cmd.ErrOrStderr()); err != nil {
				return output.HandleError(err)
			}
			return withEnv(func(ctx context.Context, e *env) error {
				s := account.SignUp{
					Sessions: e.Sessions,
					Locale:   e.Config.Locale,
					Name:     ao.Name,
					Email:    ao.Email,
					Password: ao.Password,
					Printer:  e.printer(false),
					JSON:     output.JSON,
				}
				if err := s.Do(ctx); err != nil {
					return err
				}
				e.signedIn(ctx)
				return nil
			})
		},
	}
	options.AddAccountArgs(cmd, ao, true)

	topLevel.AddCommand(cmd)
}

func addLogin(topLevel *cobra.Command) {
	ao := &options.AccountOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in on this device.",
		Example: `
daynotes login --email aysel@example.com
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			if err := ao.ResolvePassword(os.Stdin, cmd.ErrOrStderr()); err != nil {
				return output.HandleError(err)
			}
			return withEnv(func(ctx context.Context, e *env) error {
				s := account.Login{
					Sessions: e.Sessions,
					Locale:   e.Config.Locale,
					Email:    ao.Email,
					Password: ao.Password,
					Printer:  e.printer(false),
					JSON:     output.JSON,
				}
				if err := s.Do(ctx); err != nil {
					return err
				}
				e.signedIn(ctx)
				return nil
			})
		},
	}
	options.AddAccountArgs(cmd, ao, false)

	topLevel.AddCommand(cmd)
}

// signedIn runs the startup rollover check for the user a sign in or sign
// up just established.
func (e *env) signedIn(ctx context.Context) {
	if sc, ok := e.Sessions.Current(); ok {
		e.startup(ctx, sc.UID)
	}
}

func addLogout(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session cached on this device.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return withEnv(func(ctx context.Context, e *env) error {
				s := account.Logout{Sessions: e.Sessions}
				return s.Do(ctx)
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func addWhoAmI(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return withEnv(func(ctx context.Context, e *env) error {
				s := account.WhoAmI{
					Sessions: e.Sessions,
					Printer:  e.printer(false),
					JSON:     output.JSON,
				}
				return s.Do(ctx)
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func addProfile(topLevel *cobra.Command) {
	po := &options.ProfileOptions{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Change your name or password.",
		Example: `
daynotes profile --name "Aysel M."
daynotes profile --new-password n3wsecret --current-password oldsecret
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return withEnv(func(ctx context.Context, e *env) error {
				s := account.Profile{
					Sessions: e.Sessions,
					Locale:   e.Config.Locale,
					Update: session.ProfileUpdate{
						Name:            po.Name,
						NewPassword:     po.NewPassword,
						CurrentPassword: po.CurrentPassword,
					},
					Printer: e.printer(false),
					JSON:    output.JSON,
				}
				return s.Do(ctx)
			})
		},
	}
	options.AddProfileArgs(cmd, po)

	topLevel.AddCommand(cmd)
}
