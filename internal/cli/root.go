package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Configuration is read from the
// environment only.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "moneytracker",
		Short:         "Log expenses, budgets and investments into Notion databases",
		Long:          `moneytracker serves one web form per record kind and creates a page in the matching Notion database for every accepted submission.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newCheckConfigCmd(), newKindsCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
