// Copyright © 2024 The runcoliru authors

package cmd

import (
	"fmt"
	"strings"

	"github.com/luthersystems/runcoliru/session"
	"github.com/luthersystems/runcoliru/store"
	"github.com/spf13/cobra"
)

// TabsCommand creates the "tabs" cobra command and its subcommands.
func TabsCommand(opts ...Option) *cobra.Command {
	c := newCmdConfig(opts)

	cmd := &cobra.Command{
		Use:   "tabs",
		Short: "List the saved tabs",
		Long: `List the files saved by "runcoliru shell", "runcoliru gist" and
"runcoliru compile --save". The tabs live in the SQLite database at
storage.path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, ok, err := c.loadTabs(cmd)
			if err != nil || !ok {
				return err
			}
			for i, f := range sess.Files() {
				lines := strings.Count(f.Content, "\n")
				if f.Content != "" && !strings.HasSuffix(f.Content, "\n") {
					lines++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s (%d lines)\n", i, f.Name, lines) //nolint:errcheck // best-effort output
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show [name]",
		Short: "Print a saved tab",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, ok, err := c.loadTabs(cmd)
			if err != nil || !ok {
				return err
			}
			name := sess.Active()
			if len(args) == 1 {
				name = args[0]
			}
			f, found := sess.File(name)
			if !found {
				return fmt.Errorf("%w: %s", session.ErrNotFound, name)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), f.Content)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the saved tabs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, closeStore, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			return st.Delete(cmd.Context(), store.TabsKey)
		},
	})
	return quiet(cmd)
}

// loadTabs reads the saved tabs. It reports false, after telling the user,
// when nothing is saved.
func (c *cmdConfig) loadTabs(cmd *cobra.Command) (*session.Session, bool, error) {
	st, closeStore, err := c.openStore()
	if err != nil {
		return nil, false, err
	}
	defer closeStore()
	sess := (&sessionFlags{}).newSession()
	ok, err := sess.Load(cmd.Context(), st)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		fmt.Fprintln(cmd.ErrOrStderr(), "no saved tabs") //nolint:errcheck // best-effort output
	}
	return sess, ok, nil
}

func init() {
	rootCmd.AddCommand(TabsCommand())
}
