package cmd

import (
	"fmt"

	"github.com/warp-contracts/claimer/src/utils/build_info"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		fmt.Fprintln(cmd.OutOrStdout(), build_info.Version)
		return
	},
}
