// Copyright © 2024 The runcoliru authors

package cmd

import (
	"fmt"
	"strings"

	"github.com/luthersystems/runcoliru/lint"
	"github.com/spf13/cobra"
)

func analyzerList() string {
	var b strings.Builder
	for _, a := range lint.DefaultAnalyzers() {
		fmt.Fprintf(&b, "  %-22s %s\n", a.Name, lint.AnalyzerDoc(a))
	}
	return b.String()
}

// LintCommand creates the "lint" cobra command.
func LintCommand(opts ...Option) *cobra.Command {
	c := newCmdConfig(opts)
	var (
		sf       sessionFlags
		asJSON   bool
		short    bool
		checks   string
		listAll  bool
		excludes []string
	)

	cmd := &cobra.Command{
		Use:   "lint [flags] [files...]",
		Short: "Check files and the compile command before compiling",
		Long: `Check files and the compile command for problems that would make a
compile fail or do nothing, similar to "go vet" for Go. Nothing is sent
to Coliru.

With no files, the saved tabs are checked. Findings are rendered to
stderr, or printed one per line to stdout with --short.

Exit codes:
  0  No problems found
  1  One or more problems were reported
  2  Bad invocation (invalid flags, unreadable files)

To suppress checks for a file, start it with a comment:
  // nolint:empty-file
  // nolint

Available checks (use --checks to select specific ones):
` + analyzerList() + `
Examples:
  runcoliru lint main.cpp util.hpp                   # Lint files
  runcoliru lint ./...                               # Lint a directory tree
  runcoliru lint --args 'g++ main.cpp' main.cpp      # Check another template
  runcoliru lint --json ./...                        # Output diagnostics as JSON
  runcoliru lint --short ./...                       # One line per finding
  runcoliru lint --checks=invalid-name ./...         # Run only specific checks
  runcoliru lint --exclude='build' ./...             # Exclude directories`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if listAll {
				for _, name := range lint.AnalyzerNames(lint.DefaultAnalyzers()) {
					fmt.Fprintln(out, name) //nolint:errcheck // best-effort output
				}
				return nil
			}

			analyzers := lint.DefaultAnalyzers()
			if checks != "" {
				selected, err := lint.SelectAnalyzers(analyzers, checks)
				if err != nil {
					return err
				}
				analyzers = selected
			}

			files, err := c.inputFiles(cmd.Context(), args, excludes)
			if err != nil {
				return err
			}
			l := &lint.Linter{Analyzers: analyzers}
			diags, err := l.Lint(lint.Request{Files: files, Template: sf.template()})
			if err != nil {
				return err
			}
			if len(diags) == 0 {
				return nil
			}

			switch {
			case asJSON:
				if err := lint.FormatJSON(out, diags); err != nil {
					return err
				}
			case short:
				lint.FormatText(out, diags)
			default:
				if err := renderLintDiagnostics(cmd.ErrOrStderr(), diags, files); err != nil {
					return err
				}
			}
			return problemsFound
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false,
		"Output diagnostics as JSON.")
	cmd.Flags().BoolVar(&short, "short", false,
		"Print one line per finding to stdout, like go vet.")
	cmd.Flags().StringVar(&checks, "checks", "",
		"Comma-separated list of checks to run (default: all).")
	cmd.Flags().BoolVar(&listAll, "list", false,
		"List available checks and exit.")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	return quiet(cmd)
}

func init() {
	rootCmd.AddCommand(LintCommand())
}
