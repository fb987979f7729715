// Create command inserts a new record from a JSON payload.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var createData string

var createCmd = &cobra.Command{
	Use:   "create <resource>",
	Short: "Create a record from a JSON payload",
	Long: `Create validates the payload against the resource contract and stores
a new record. The payload comes from --data or stdin.

Example:
  datasurface create tasks --data '{"title":"write report"}'
  echo '{"title":"write report"}' | datasurface create tasks`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(createData)
		if err != nil {
			return err
		}

		s, err := openSurface()
		if err != nil {
			fmt.Fprintln(os.Stderr, "create:", err)
			os.Exit(exitSysError)
		}
		defer s.Close()

		doc, err := s.Engine().Create(cmd.Context(), args[0], payload)
		if err != nil {
			fail("create", err)
		}
		return printJSON(doc)
	},
}

func init() {
	createCmd.Flags().StringVar(&createData, "data", "", "JSON payload (default: read stdin)")
}
