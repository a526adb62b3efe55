package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "clubdesk",
		Short:         "Inspect plans and evaluate club entitlements",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.AddCommand(newPlansCommand())
	root.AddCommand(newEvaluateCommand())
	root.AddCommand(newReconcileCommand())
	return root
}
