package cli

import (
	"fmt"
	"slices"

	"github.com/kolah/parley/internal/config"
	"github.com/kolah/parley/internal/loader"
	"github.com/spf13/cobra"
)

func OperationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List the API operations available for resolution",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}

			result, err := loader.LoadFile(cfg.Spec)
			if err != nil {
				return fmt.Errorf("loading spec: %w", err)
			}
			for _, w := range result.Warnings {
				cmd.PrintErrf("Warning: %s\n", w)
			}

			ops := loader.Operations(result)
			shown := 0
			for _, op := range ops {
				if cfg.Scope != "" && !slices.Contains(op.Tags, cfg.Scope) {
					continue
				}
				cmd.Printf("%-6s %-40s %s\n", op.Method, op.Path, op.Summary)
				shown++
			}
			cmd.PrintErrf("%d operations", shown)
			if cfg.Scope != "" {
				cmd.PrintErrf(" (scope: %s)", cfg.Scope)
			}
			cmd.PrintErrln()

			return nil
		},
	}
}
