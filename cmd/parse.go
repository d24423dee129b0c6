// Copyright © 2024 The runcoliru authors

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/luthersystems/runcoliru/diagnostic"
	"github.com/luthersystems/runcoliru/parser"
	"github.com/spf13/cobra"
)

// ParseCommand creates the "parse" cobra command.
func ParseCommand() *cobra.Command {
	var (
		asJSON     bool
		countsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "parse [flags] [file]",
		Short: "Find GCC diagnostics in compiler output",
		Long: `Find GCC diagnostics in compiler output read from a file or stdin.

Each "file:line:col: error:" or "file:line:col: warning:" line becomes a
diagnostic. A caret line that follows the source excerpt narrows its column
range. Diagnostics are rendered against the files on disk when they exist.

Exit codes:
  0  no errors were found
  1  the output contains errors
  2  the input could not be read

Examples:
  runcoliru parse build.log
  make 2>&1 | runcoliru parse --counts
  runcoliru parse --json build.log`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close() //nolint:errcheck // read-only
				in = f
			}
			diags, err := parser.ParseReader(in)
			if err != nil {
				return fmt.Errorf("reading compiler output: %w", err)
			}
			if err := writeParsed(cmd.OutOrStdout(), diags, asJSON, countsOnly); err != nil {
				return err
			}
			if diagnostic.HasErrors(diags) {
				return problemsFound
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false,
		"Print the diagnostics as JSON.")
	cmd.Flags().BoolVar(&countsOnly, "counts", false,
		"Print only the per-file error and warning counts.")
	return quiet(cmd)
}

func writeParsed(w io.Writer, diags []diagnostic.Diagnostic, asJSON, countsOnly bool) error {
	counts := diagnostic.Summarize(diags)
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if countsOnly {
			return enc.Encode(counts)
		}
		if diags == nil {
			diags = []diagnostic.Diagnostic{}
		}
		return enc.Encode(diags)
	}
	r := newRenderer(nil)
	if !countsOnly {
		if err := r.RenderAll(w, diags); err != nil {
			return err
		}
	}
	return r.RenderCounts(w, counts)
}

func init() {
	rootCmd.AddCommand(ParseCommand())
}
