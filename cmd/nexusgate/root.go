package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nexusgate/pkg/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "nexusgate",
	Short: "NexusGate - universal LLM gateway",
	Long: `NexusGate is an OpenAI-compatible HTTP gateway that normalizes chat
completion requests and forwards them to heterogeneous LLM backends:
LightLLM, vLLM, OpenAI, Azure OpenAI, AWS Bedrock, or any compatible
endpoint.

It manages connection pooling, deadline propagation, retry with backoff,
idempotency, rate limiting, response caching, and metrics.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file (YAML)")
}

// loadConfig resolves configuration from the flag or the environment.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.FromEnv()
}
