// Copyright © 2024 The runcoliru authors

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/luthersystems/runcoliru/source"
	"github.com/spf13/cobra"
)

// GistCommand creates the "gist" cobra command.
func GistCommand(opts ...Option) *cobra.Command {
	c := newCmdConfig(opts)
	var dir string

	cmd := &cobra.Command{
		Use:   "gist [flags] <id or url>",
		Short: "Load a GitHub gist into the saved tabs",
		Long: `Load a GitHub gist into the saved tabs.

The reference is a gist id or any gist URL ending in the id, e.g.
https://gist.github.com/user/aa5a315d61ae9438b18d. Files are ordered by
name. The loaded files replace the saved tabs so that "runcoliru compile"
and "runcoliru shell" pick them up. With --dir the files are also written
to a local directory.

Set github.token (RUNCOLIRU_GITHUB_TOKEN) to raise the API rate limit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, closeStore, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			sess := (&sessionFlags{}).newSession()
			if err := sess.LoadGist(ctx, c.resolveGists(), args[0], st); err != nil {
				return err
			}
			files := sess.Files()
			if dir != "" {
				if err := writeDir(dir, files); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			for _, f := range files {
				mark := " "
				if f.Name == sess.Active() {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\n", mark, f.Name) //nolint:errcheck // best-effort output
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "",
		"Also write the files to this directory.")
	return quiet(cmd)
}

// writeDir writes files into dir, creating it when needed.
func writeDir(dir string, files []source.File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		if f.Name != filepath.Base(f.Name) || f.Name == ".." {
			return fmt.Errorf("refusing to write %q outside %s", f.Name, dir)
		}
		if err := os.WriteFile(filepath.Join(dir, f.Name), []byte(f.Content), 0o644); err != nil { //nolint:gosec // user source files
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(GistCommand())
}
