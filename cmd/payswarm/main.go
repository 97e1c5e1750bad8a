package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "payswarm",
		Short:         "Resolve and check PaySwarm payee lists offline",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log resolution details to stderr")

	rootCmd.AddCommand(transfersCmd())
	rootCmd.AddCommand(checkGroupsCmd())
	rootCmd.AddCommand(checkRulesCmd())

	return rootCmd
}
