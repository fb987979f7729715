// Package main provides the datasurface CLI, a thin shell over the CRUD
// engine for defining resources and working with their records.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUserError)
	}
}
