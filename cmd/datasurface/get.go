// Get command retrieves one record by id.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MoslemBenDhaou/datasurface/pkg/engine"
)

var (
	getExpand []string
	getFields []string
)

var getCmd = &cobra.Command{
	Use:   "get <resource> <id>",
	Short: "Get a record by id",
	Long: `Get retrieves one record of the given resource by its key.

Example:
  datasurface get tasks 0190b7a2-52d1-7cc3-a3a1-4f2d8f1f6b21
  datasurface get tasks 42 --expand=owner`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSurface()
		if err != nil {
			fmt.Fprintln(os.Stderr, "get:", err)
			os.Exit(exitSysError)
		}
		defer s.Close()

		doc, err := s.Engine().Get(cmd.Context(), args[0], args[1], engine.GetOptions{
			Expand: getExpand,
			Fields: getFields,
		})
		if err != nil {
			fail("get", err)
		}
		if doc == nil {
			fmt.Fprintf(os.Stderr, "record %q not found in resource %q\n", args[1], args[0])
			os.Exit(exitUserError)
		}
		return printJSON(doc)
	},
}

func init() {
	getCmd.Flags().StringSliceVar(&getExpand, "expand", nil, "relations to expand")
	getCmd.Flags().StringSliceVar(&getFields, "fields", nil, "restrict output to these fields")
}
