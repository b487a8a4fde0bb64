package options

import (
	"github.com/spf13/cobra"
)

// RolloverOptions
type RolloverOptions struct {
	Force bool
}

func AddRolloverArgs(cmd *cobra.Command, o *RolloverOptions) {
	cmd.Flags().BoolVarP(&o.Force, "force", "f", false,
		"Archive the current notes now, even if they are from today.")
}
