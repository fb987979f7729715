// Init command for the datasurface CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MoslemBenDhaou/datasurface/pkg/surface"
)

var initSeed bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize datasurface storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}
		if err := ensureConfigDir(configDir); err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}
		if err := ensureDefaultConfigFile(configDir); err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}

		s, err := openSurfaceWith(surface.Options{Logger: newLogger(), Seed: initSeed})
		if err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}
		defer s.Close()

		dataDir, err := resolveDataDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}

		fmt.Println("Datasurface initialized successfully")
		fmt.Println("  config:", configDir)
		fmt.Println("  data:  ", dataDir)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initSeed, "seed", false, "install the built-in example resource definitions")
}
