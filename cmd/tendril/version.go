package main

import (
	"fmt"

	"github.com/aretw0/tendril"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tendril",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tendril version %s\n", tendril.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
