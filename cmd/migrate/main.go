package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Schema migrations and link administration for payhook",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config file (defaults to PAYHOOK_CONFIG or configs/config.yaml)")

	rootCmd.AddCommand(upCmd())
	rootCmd.AddCommand(createLinkCmd())
	rootCmd.AddCommand(logsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
