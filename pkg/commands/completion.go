package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func addCompletions(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generates bash completion scripts",
		Long: `To load completion run

. <(daynotes completion)

To configure your bash shell to load completions for each session add to your bashrc

# ~/.bashrc or ~/.profile
. <(daynotes completion)
`,
		Run: func(cmd *cobra.Command, args []string) {
			_ = topLevel.GenBashCompletion(os.Stdout)
		},
	}

	topLevel.AddCommand(cmd)
}

// completeIDs offers "id\ttext" pairs from the signed in user's journal.
func completeIDs(list func(ctx context.Context, e *env, uid string) ([]string, error)) ([]string, cobra.ShellCompDirective) {
	var ids []string
	_ = withEnv(func(ctx context.Context, e *env) error {
		sc, err := e.user(ctx)
		if err != nil {
			return err
		}
		ids, err = list(ctx, e, sc.UID)
		return err
	})
	return ids, cobra.ShellCompDirectiveNoFileComp
}

func noteCompletions(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return completeIDs(func(ctx context.Context, e *env, uid string) ([]string, error) {
		notes, err := e.Service.Notes(ctx, uid)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(notes))
		for _, n := range notes {
			ids = append(ids, n.ID+"\t"+n.Text)
		}
		return ids, nil
	})
}

func archiveCompletions(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return completeIDs(func(ctx context.Context, e *env, uid string) ([]string, error) {
		history, err := e.Service.History(ctx, uid)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(history))
		for _, a := range history {
			ids = append(ids, a.ID+"\t"+a.Title)
		}
		return ids, nil
	})
}
