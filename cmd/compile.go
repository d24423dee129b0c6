// Copyright © 2024 The runcoliru authors

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/luthersystems/runcoliru/diagnostic"
	"github.com/luthersystems/runcoliru/lint"
	"github.com/luthersystems/runcoliru/session"
	"github.com/luthersystems/runcoliru/source"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errNoFiles = errors.New("no files matched")

// inputFiles reads the files named by args or, with no args, the saved
// tabs. Without saved tabs it returns the default program.
func (c *cmdConfig) inputFiles(ctx context.Context, args, excludes []string) ([]source.File, error) {
	if len(args) > 0 {
		paths, err := expandArgs(args, excludes)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, errNoFiles
		}
		return readFiles(paths)
	}
	st, closeStore, err := c.openStore()
	if err != nil {
		return nil, err
	}
	defer closeStore()
	sess := session.New()
	ok, err := sess.Load(ctx, st)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger().Debug("no saved tabs; using the default program")
	}
	return sess.Files(), nil
}

// playground returns a session holding the input files.
func (c *cmdConfig) playground(ctx context.Context, sf *sessionFlags, args, excludes []string) (*session.Session, error) {
	files, err := c.inputFiles(ctx, args, excludes)
	if err != nil {
		return nil, err
	}
	sess := sf.newSession()
	if err := sess.Replace(files); err != nil {
		return nil, err
	}
	return sess, nil
}

// CompileCommand creates the "compile" cobra command.
func CompileCommand(opts ...Option) *cobra.Command {
	c := newCmdConfig(opts)
	var (
		sf       sessionFlags
		asJSON   bool
		dryRun   bool
		save     bool
		noLint   bool
		excludes []string
	)

	cmd := &cobra.Command{
		Use:   "compile [flags] [files...]",
		Short: "Compile and run files on Coliru",
		Long: `Compile and run C/C++ files on Coliru.

The files are uploaded under their base names and the compile command
template runs over the .cpp files among them. The program output is
printed to stdout; GCC diagnostics found in it are rendered to stderr
against the local sources, followed by per-file error and warning counts.

With no files, the tabs saved by "runcoliru shell" or "runcoliru gist" are
compiled. A directory argument ending in "/..." expands to every C/C++
file below it.

The files are linted first. Lint errors stop the compile; warnings are
printed and the compile continues. Use --no-lint to skip the checks.

Exit codes:
  0  the compiler reported no errors
  1  the compiler reported errors, or linting failed
  2  bad invocation, unreadable files, or Coliru could not be reached

Examples:
  runcoliru compile main.cpp util.hpp
  runcoliru compile --args 'g++ -std=c++17 ${cppFiles} && ./a.out' ./src/...
  runcoliru compile --dry-run main.cpp
  runcoliru compile --json main.cpp | jq .counts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

			sess, err := c.playground(ctx, &sf, args, excludes)
			if err != nil {
				return err
			}
			if dryRun {
				_, err := fmt.Fprintln(out, sess.Command())
				return err
			}
			if !noLint {
				if err := lintSession(errOut, sess); err != nil {
					return err
				}
			}

			res, err := sess.Compile(ctx, c.resolveCompiler())
			if err != nil {
				fmt.Fprintln(errOut, sess.Output()) //nolint:errcheck // best-effort report
				return &exitError{code: 2}
			}
			if save {
				if err := c.save(ctx, sess); err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else if err := writeResult(out, errOut, sess, res); err != nil {
				return err
			}
			if diagnostic.HasErrors(res.Diagnostics) {
				return problemsFound
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false,
		"Print the output, diagnostics and counts as JSON.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Print the command that would be sent and exit.")
	cmd.Flags().BoolVar(&save, "save", false,
		"Save the files as the current tabs after compiling.")
	cmd.Flags().BoolVar(&noLint, "no-lint", false,
		"Skip the checks run before compiling.")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	return quiet(cmd)
}

// lintSession reports lint findings for sess to w and fails when any of
// them is an error.
func lintSession(w io.Writer, sess *session.Session) error {
	files := sess.Files()
	l := &lint.Linter{Analyzers: lint.DefaultAnalyzers()}
	diags, err := l.Lint(lint.Request{Files: files, Template: sess.Template()})
	if err != nil {
		return err
	}
	if len(diags) == 0 {
		return nil
	}
	if err := renderLintDiagnostics(w, diags, files); err != nil {
		return err
	}
	if lint.HasErrors(diags) {
		return problemsFound
	}
	return nil
}

func (c *cmdConfig) save(ctx context.Context, sess *session.Session) error {
	st, closeStore, err := c.openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	if err := sess.Save(ctx, st); err != nil {
		return err
	}
	logger().Info("saved tabs", zap.Int("files", len(sess.Files())))
	return nil
}

// writeResult prints the program output to out and the rendered
// diagnostics and counts to errOut.
func writeResult(out, errOut io.Writer, sess *session.Session, res session.Result) error {
	if _, err := io.WriteString(out, res.Output); err != nil {
		return err
	}
	if res.Output != "" && !strings.HasSuffix(res.Output, "\n") {
		if _, err := io.WriteString(out, "\n"); err != nil {
			return err
		}
	}
	if len(res.Diagnostics) == 0 {
		return nil
	}
	r := newRenderer(sess.Files())
	if err := r.RenderAll(errOut, res.Diagnostics); err != nil {
		return err
	}
	return r.RenderCounts(errOut, res.Counts)
}

// CommandCommand creates the "command" cobra command.
func CommandCommand(opts ...Option) *cobra.Command {
	c := newCmdConfig(opts)
	var (
		sf       sessionFlags
		excludes []string
	)
	cmd := &cobra.Command{
		Use:   "command [flags] [files...]",
		Short: "Print the shell command sent to Coliru",
		Long: `Print the shell command that "runcoliru compile" would send to Coliru.

The command writes every file with printf and a quoted argument, then runs
the compile template with ${cppFiles} replaced by the quoted .cpp names.
With no files, the saved tabs are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.playground(cmd.Context(), &sf, args, excludes)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sess.Command())
			return err
		},
	}
	sf.register(cmd)
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	return quiet(cmd)
}

func init() {
	rootCmd.AddCommand(CompileCommand())
	rootCmd.AddCommand(CommandCommand())
}
