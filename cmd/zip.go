// Copyright © 2024 The runcoliru authors

package cmd

import (
	"fmt"
	"os"

	"github.com/luthersystems/runcoliru/export"
	"github.com/spf13/cobra"
)

// ZipCommand creates the "zip" cobra command.
func ZipCommand(opts ...Option) *cobra.Command {
	c := newCmdConfig(opts)
	var (
		sf       sessionFlags
		output   string
		excludes []string
	)

	cmd := &cobra.Command{
		Use:   "zip [flags] [files...]",
		Short: "Export files and a Makefile to a zip archive",
		Long: `Write files and a generated Makefile to a zip archive.

The Makefile builds the .cpp files with the flags from the compile command
template, so the project builds locally with "make". A file named Makefile
among the inputs is kept instead. With no files, the saved tabs are used.`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			sess, err := c.playground(cmd.Context(), &sf, args, excludes)
			if err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()
			if err := export.WriteZip(f, sess.Files(), sess.Template()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output) //nolint:errcheck // best-effort output
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", export.DefaultArchiveName,
		"Archive path.")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	return quiet(cmd)
}

func init() {
	rootCmd.AddCommand(ZipCommand())
}
