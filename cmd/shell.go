// Copyright © 2024 The runcoliru authors

package cmd

import (
	"github.com/luthersystems/runcoliru/repl"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ShellCommand creates the "shell" cobra command.
func ShellCommand(opts ...Option) *cobra.Command {
	c := newCmdConfig(opts)
	var (
		sf     sessionFlags
		prompt string
		width  int
	)

	cmd := &cobra.Command{
		Use:     "shell",
		Aliases: []string{"repl"},
		Short:   "Start an interactive playground session",
		Long: `Start an interactive playground session.

The session starts with the saved tabs, or a single main.cpp holding a
hello world program. Lines starting with ":" are commands; type :help for
the list. Line editing and command history are supported via readline.
Use :quit or Ctrl-D to exit. Use :save to keep the tabs for the next
session.

Example session:
  coliru> :files
  * 0 main.cpp
  coliru> :open util.hpp
  coliru> :edit
  editing util.hpp; end with a line "."
  #pragma once
  int twice(int x);
  .
  coliru> :compile
  Hello, World!
  Returned: 0
  coliru> :save
  saved 2 files`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, closeStore, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			sess := sf.newSession()
			if ok, err := sess.Load(ctx, st); err != nil {
				logger().Warn("could not restore tabs", zap.Error(err))
			} else if ok {
				logger().Debug("restored tabs", zap.Int("files", len(sess.Files())))
			}

			return repl.Run(ctx, prompt,
				repl.WithSession(sess),
				repl.WithCompiler(c.resolveCompiler()),
				repl.WithGistLoader(c.resolveGists()),
				repl.WithStore(st),
				repl.WithColor(colorMode()),
				repl.WithWidth(width),
				repl.WithLogger(logger()),
			)
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVar(&prompt, "prompt", "coliru> ",
		"Input prompt.")
	cmd.Flags().IntVar(&width, "width", repl.DefaultWidth,
		"Wrap :history output at this many columns.")
	return quiet(cmd)
}

func init() {
	rootCmd.AddCommand(ShellCommand())
}
