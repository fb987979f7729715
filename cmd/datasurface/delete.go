// Delete command removes a record.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MoslemBenDhaou/datasurface/pkg/engine"
)

var deleteHard bool

var deleteCmd = &cobra.Command{
	Use:   "delete <resource> <id>",
	Short: "Delete a record",
	Long: `Delete soft-deletes a record: it disappears from reads but stays in
storage. With --hard the record and its index rows are removed permanently.

Example:
  datasurface delete tasks 42
  datasurface delete tasks 42 --hard`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSurface()
		if err != nil {
			fmt.Fprintln(os.Stderr, "delete:", err)
			os.Exit(exitSysError)
		}
		defer s.Close()

		if err := s.Engine().Delete(cmd.Context(), args[0], args[1], engine.DeleteOptions{Hard: deleteHard}); err != nil {
			fail("delete", err)
		}
		fmt.Printf("Deleted record %q from resource %q\n", args[1], args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteHard, "hard", false, "remove the record permanently")
}
