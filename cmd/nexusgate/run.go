package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"nexusgate/pkg/server"
	"nexusgate/pkg/telemetry/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if _, err := logging.Setup(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		}); err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}

		server.Version = Version
		gw, err := server.New(cfg, nil)
		if err != nil {
			return err
		}
		return gw.Run(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
