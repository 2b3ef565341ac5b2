// File: cmd/watch.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/method-and-apparatus/open-jaws/internal/config"
	"github.com/method-and-apparatus/open-jaws/internal/observability"
)

// newWatchCmd creates the `watch` command: continuous sweeps at the
// configured interval until interrupted.
func newWatchCmd(getConfig func() *config.Config) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Run continuous sweeps at the configured interval",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("mission.sweep_interval", cmd.Flags().Lookup("interval"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := getConfig()

			// Re-resolve the interval now that the flag is bound.
			if d := viper.GetDuration("mission.sweep_interval"); d > 0 {
				cfg.Mission.SweepInterval = d
			}

			components, err := initializeMissionComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize mission components: %w", err)
			}
			defer components.Shutdown()

			return components.Control.RunDaemon(ctx)
		},
	}

	watchCmd.Flags().Duration("interval", 0, "Interval between sweeps. (Overrides config/env)")
	return watchCmd
}
