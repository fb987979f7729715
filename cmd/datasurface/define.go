// Define and undefine commands manage resource definitions.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

var defineCmd = &cobra.Command{
	Use:   "define <file.json>",
	Short: "Install or replace a resource definition",
	Long: `Define reads a raw resource definition from a JSON file and stores it.
An existing definition with the same resource key is replaced; cached
contracts rebuild on next use.

Example:
  datasurface define tasks.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read definition: %w", err)
		}
		var def resource.RawDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("parse definition: %w", err)
		}

		s, err := openSurface()
		if err != nil {
			fmt.Fprintln(os.Stderr, "define:", err)
			os.Exit(exitSysError)
		}
		defer s.Close()

		if err := s.Definitions().Put(cmd.Context(), &def); err != nil {
			fail("define", err)
		}

		if flagJSON {
			return printJSON(map[string]string{"key": def.Key, "route": def.Route})
		}
		fmt.Printf("Defined resource %q (route %q)\n", def.Key, def.Route)
		return nil
	},
}

var undefineCmd = &cobra.Command{
	Use:   "undefine <resource>",
	Short: "Remove a resource definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSurface()
		if err != nil {
			fmt.Fprintln(os.Stderr, "undefine:", err)
			os.Exit(exitSysError)
		}
		defer s.Close()

		if err := s.Definitions().Delete(cmd.Context(), args[0]); err != nil {
			fail("undefine", err)
		}

		fmt.Printf("Removed resource %q\n", args[0])
		return nil
	},
}
