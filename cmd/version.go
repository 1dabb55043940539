package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const versionStr = "0.1.0"

var (
	versionCmd = &cobra.Command{
		Use:   "version [flags]",
		Short: "Prints the version and exits.",
		Run:   version,
	}
	numOnly bool
)

func init() {
	versionCmd.Flags().BoolVarP(&numOnly, "num", "n", false, "Output the version number only.")
}

func version(cmd *cobra.Command, args []string) {
	if numOnly {
		fmt.Printf("%s\n", versionStr)
	} else {
		fmt.Printf("Version: %s\n", versionStr)
	}

	os.Exit(0)
}
