package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("configuration ok: backend=%s url=%s model=%s environment=%s\n",
			displayKind(cfg.Backend.Kind), cfg.Backend.URL, cfg.Backend.ModelID, cfg.Environment)
		return nil
	},
}

func displayKind(kind string) string {
	if kind == "" {
		return "auto"
	}
	return kind
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
