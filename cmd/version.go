package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/kozaktomas/facewatch/cmd.Version=...".
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		if mustFlag("short", cmd.Flags().GetBool) {
			fmt.Println(Version)
			return
		}
		fmt.Printf("facewatch %s (%s, built %s)\n", Version, CommitSHA, BuildDate)
		fmt.Printf("  %s %s/%s, recognizers: %s, %s\n",
			runtime.Version(), runtime.GOOS, runtime.GOARCH, recognizerDlib, recognizerRemote)
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "Print only the version")
	rootCmd.AddCommand(versionCmd)
}
