// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/method-and-apparatus/open-jaws/internal/config"
	"github.com/method-and-apparatus/open-jaws/internal/observability"
)

// NewRootCommand builds a fresh command tree. Each invocation gets its own
// instance so flags never leak between executions.
func NewRootCommand() *cobra.Command {
	var (
		cfgFile    string
		dryRunFlag bool
		loadedCfg  *config.Config
	)

	rootCmd := &cobra.Command{
		Use:     "openjaws",
		Short:   "Open Jaws hunts engagement farmers. Licensed to unfollow.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(cfgFile); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				// Initialize a fallback logger so the failure is visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "open-jaws"})
				return err
			}

			// The --dry-run flag forces reconnaissance mode for this
			// invocation regardless of the configured default.
			if dryRunFlag {
				cfg.Mission.DryRun = true
			}
			loadedCfg = cfg

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("Mission control online", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&dryRunFlag, "dry-run", false, "reconnaissance only: observe, don't mute")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	getConfig := func() *config.Config { return loadedCfg }
	rootCmd.AddCommand(newSweepCmd(getConfig))
	rootCmd.AddCommand(newWatchCmd(getConfig))

	return rootCmd
}

// Execute runs the command tree under the given context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}

// initializeConfig reads in the config file and environment variables.
func initializeConfig(cfgFile string) error {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("OPENJAWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars carry the run.
	}
	return nil
}
