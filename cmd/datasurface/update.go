// Update command patch-merges a JSON payload into a record.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var updateData string

var updateCmd = &cobra.Command{
	Use:   "update <resource> <id>",
	Short: "Update a record from a JSON payload",
	Long: `Update patch-merges the payload over the stored record. Absent fields
keep their values; explicit nulls clear them. Resources with a version
token field require it in the payload when the contract says so.

Example:
  datasurface update tasks 42 --data '{"done":true,"rev":"<token>"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(updateData)
		if err != nil {
			return err
		}

		s, err := openSurface()
		if err != nil {
			fmt.Fprintln(os.Stderr, "update:", err)
			os.Exit(exitSysError)
		}
		defer s.Close()

		doc, err := s.Engine().Update(cmd.Context(), args[0], args[1], payload)
		if err != nil {
			fail("update", err)
		}
		return printJSON(doc)
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateData, "data", "", "JSON payload (default: read stdin)")
}
