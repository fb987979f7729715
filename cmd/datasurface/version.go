// Version command for the datasurface CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the CLI version string.
const Version = "v0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the datasurface version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("datasurface", Version)
	},
}
