package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kucukaslan/activity/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.GetInfo().String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
