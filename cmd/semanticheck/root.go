package main

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

// options holds the flags shared by every subcommand.
type options struct {
	configPath string
}

// rootCommand creates the semanticheck command tree.
func rootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "semanticheck",
		Short:         "Semantic similarity and AI-authorship analysis",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", configPath(),
		"Path to the YAML config file (env SEMANTICHECK_CONFIG)")

	rootCmd.AddCommand(
		serveCommand(opts),
		compareCommand(opts),
		detectCommand(opts),
		mcpCommand(opts),
		encryptCommand(),
		doctorCommand(opts),
	)
	return rootCmd
}

func configPath() string {
	if p := os.Getenv("SEMANTICHECK_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}
