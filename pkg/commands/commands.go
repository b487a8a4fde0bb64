package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/daynotes/pkg/commands/options"
	"tableflip.dev/daynotes/pkg/config"
)

var (
	output = &options.OutputOptions{}

	// backendFlag overrides the configured backend for one run.
	backendFlag string
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "daynotes",
		Short: options.Wrap80("A daily journal on the command line. Notes you write today are archived into your history at midnight."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	options.AddOutputArg(cmd, output)
	cmd.PersistentFlags().StringVar(&backendFlag, "backend", "",
		"Override the configured backend, one of "+config.BackendDisk+", "+config.BackendRedis+" or "+config.BackendMemory+".")

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addSignUp(topLevel)
	addLogin(topLevel)
	addLogout(topLevel)
	addWhoAmI(topLevel)
	addProfile(topLevel)
	addAdd(topLevel)
	addRemove(topLevel)
	addList(topLevel)
	addHistory(topLevel)
	addRollover(topLevel)
	addWatch(topLevel)
	addMigrate(topLevel)
	addInfo(topLevel)
	addVersion(topLevel)
	addCompletions(topLevel)
}
