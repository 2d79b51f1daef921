package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/artchain-labs/nft-broker/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version of nft-broker.",
	Long:  `Prints the version of nft-broker.`,
	Run: func(cmd *cobra.Command, args []string) {
		initCommon()

		fmt.Printf("Version: %s\nCommit: %s\nOS/Arch: %s/%s\n",
			version.Release, version.GitCommit, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
