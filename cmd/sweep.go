// File: cmd/sweep.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/method-and-apparatus/open-jaws/internal/config"
	"github.com/method-and-apparatus/open-jaws/internal/observability"
)

// newSweepCmd creates the `sweep` command: one full cycle of the timeline,
// then exit.
func newSweepCmd(getConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Execute a single sweep of the timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := getConfig()

			components, err := initializeMissionComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize mission components: %w", err)
			}
			defer components.Shutdown()

			neutralized, err := components.Control.RunSweep(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Single sweep complete. %d neutralized.\n", neutralized)
			return nil
		},
	}
}
