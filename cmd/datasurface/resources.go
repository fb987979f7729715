// Resources and describe commands inspect the installed contracts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the defined resources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSurface()
		if err != nil {
			fmt.Fprintln(os.Stderr, "resources:", err)
			os.Exit(exitSysError)
		}
		defer s.Close()

		contracts, err := s.Contracts().All(cmd.Context())
		if err != nil {
			fail("resources", err)
		}

		if flagJSON {
			type entry struct {
				Key     string `json:"key"`
				Route   string `json:"route"`
				Backend string `json:"backend"`
			}
			out := make([]entry, 0, len(contracts))
			for _, c := range contracts {
				out = append(out, entry{Key: c.Key, Route: c.Route, Backend: c.Backend})
			}
			return printJSON(out)
		}
		for _, c := range contracts {
			fmt.Printf("%s\troute=%s\tbackend=%s\tfields=%d\n", c.Key, c.Route, c.Backend, len(c.Fields))
		}
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <resource>",
	Short: "Show the normalized contract of a resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSurface()
		if err != nil {
			fmt.Fprintln(os.Stderr, "describe:", err)
			os.Exit(exitSysError)
		}
		defer s.Close()

		c, err := s.Contracts().GetByKey(cmd.Context(), args[0])
		if err != nil {
			fail("describe", err)
		}
		return printJSON(c)
	},
}
