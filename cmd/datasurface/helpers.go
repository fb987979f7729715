// Shared helpers for datasurface CLI commands.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
	"github.com/MoslemBenDhaou/datasurface/pkg/surface"
)

// openSurface resolves the data directory and opens an embedded instance.
// The caller must defer s.Close().
func openSurface() (*surface.Surface, error) {
	return openSurfaceWith(surface.Options{Logger: newLogger()})
}

func openSurfaceWith(opts surface.Options) (*surface.Surface, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	s, err := surface.Open(dataDir, opts)
	if err != nil {
		return nil, fmt.Errorf("open surface: %w", err)
	}
	return s, nil
}

func newLogger() *zap.Logger {
	if !flagVerbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// readPayload parses a record payload from the given argument, or from
// stdin when the argument is "-" or absent.
func readPayload(arg string) (resource.Document, error) {
	var data []byte
	var err error
	if arg == "" || arg == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	} else {
		data = []byte(arg)
	}
	var doc resource.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return doc, nil
}

// parseFilterArgs turns key=value arguments into the filter map consumed
// by the engine. Values keep the op:value form as written.
func parseFilterArgs(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid filter %q (expected field=value or field=op:value)", arg)
		}
		filters[parts[0]] = parts[1]
	}
	return filters, nil
}

// exitCode classifies an operation error: caller mistakes exit with
// exitUserError, everything else with exitSysError.
func exitCode(err error) int {
	var verr *resource.ValidationError
	var nfe *resource.NotFoundError
	var cce *resource.ConcurrencyError
	var ode *resource.OperationDisabledError
	switch {
	case errors.As(err, &verr), errors.As(err, &nfe), errors.As(err, &cce), errors.As(err, &ode),
		errors.Is(err, resource.ErrDefinitionNotFound):
		return exitUserError
	default:
		return exitSysError
	}
}

// fail prints the error and exits with its classified code.
func fail(prefix string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, err)
	os.Exit(exitCode(err))
}
