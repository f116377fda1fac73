package cli

import (
	"github.com/kolah/parley/internal/config"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "parley",
		Short:   "Parley - talk to your API in plain language",
		Version: "1.0.0",

		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	config.BindFlags(root)
	root.AddCommand(
		ChatCommand(),
		OperationsCommand(),
	)

	return root
}
