package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/studyolle/studyolle/cmd/do/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "do",
		Short:        "Development and operations tools for studyolle",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.DevCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.AccountsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
