// Command csrlab-api serves the customer-service role-play experiment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "csrlab-api"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	serve := func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), configPath)
	}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "CSR role-play experiment API",
		Long: `csrlab-api runs the two-round customer-service role-play study:
pre-survey and stratified randomization, simulated client chats with
optional support panels, and the round and final surveys.

Configuration comes from an optional YAML file and CSRLAB_* environment
variables.`,
		RunE:          serve,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CSRLAB_CONFIG"), "Config file path (YAML)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE:  serve,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}
