// Copyright © 2024 The runcoliru authors

package cmd

import (
	"github.com/luthersystems/runcoliru/coliru"
	"github.com/luthersystems/runcoliru/gist"
	"github.com/luthersystems/runcoliru/session"
	"github.com/luthersystems/runcoliru/shellcmd"
	"github.com/luthersystems/runcoliru/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Option configures an exported command factory (CompileCommand,
// ShellCommand, LSPCommand, ...).
type Option func(*cmdConfig)

type cmdConfig struct {
	compiler session.Compiler
	gists    session.GistLoader
	store    store.Store
}

// quiet leaves error reporting to the caller. A factory command run on its
// own would otherwise print usage and "Error:" lines around its output.
func quiet(cmd *cobra.Command) *cobra.Command {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

func newCmdConfig(opts []Option) *cmdConfig {
	var c cmdConfig
	for _, o := range opts {
		o(&c)
	}
	return &c
}

// WithCompiler replaces the Coliru client built from configuration.
// Embedders use it to point the commands at another compile backend.
func WithCompiler(c session.Compiler) Option {
	return func(cfg *cmdConfig) { cfg.compiler = c }
}

// WithGistLoader replaces the GitHub client built from configuration.
func WithGistLoader(l session.GistLoader) Option {
	return func(cfg *cmdConfig) { cfg.gists = l }
}

// WithStore replaces the SQLite store at storage.path. The command does
// not close an injected store.
func WithStore(st store.Store) Option {
	return func(cfg *cmdConfig) { cfg.store = st }
}

func (c *cmdConfig) resolveCompiler() session.Compiler {
	if c.compiler != nil {
		return c.compiler
	}
	cfg := settings()
	return coliru.New(
		coliru.WithURL(cfg.Coliru.URL),
		coliru.WithTimeout(cfg.Coliru.Timeout),
		coliru.WithMaxTries(int(cfg.Coliru.MaxTries)),
		coliru.WithLogger(logger()),
		coliru.WithTracer(tracerProvider().Tracer()),
	)
}

func (c *cmdConfig) resolveGists() session.GistLoader {
	if c.gists != nil {
		return c.gists
	}
	cfg := settings()
	return gist.New(
		gist.WithAPIURL(cfg.GitHub.APIURL),
		gist.WithToken(cfg.GitHub.Token),
		gist.WithMaxTries(int(cfg.GitHub.MaxTries)),
		gist.WithLogger(logger()),
		gist.WithTracer(tracerProvider().Tracer()),
	)
}

// openStore returns the injected store or opens the configured database.
// The returned func releases what openStore opened.
func (c *cmdConfig) openStore() (store.Store, func(), error) {
	if c.store != nil {
		return c.store, func() {}, nil
	}
	st, err := store.OpenSQLite(settings().Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	logger().Debug("opened store", zap.String("path", st.Path()))
	return st, func() {
		if err := st.Close(); err != nil {
			logger().Warn("closing store", zap.Error(err))
		}
	}, nil
}

// sessionFlags are the flags shared by commands that build a compile
// command.
type sessionFlags struct {
	args  string
	ansiC bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.args, "args", "",
		"Compile command template (default from compile.args).")
	cmd.Flags().BoolVar(&f.ansiC, "ansi-c", false,
		"Quote file contents with bash ANSI-C quoting ($'...').")
}

// template returns --args or the configured template.
func (f *sessionFlags) template() string {
	if f.args != "" {
		return f.args
	}
	return settings().Compile.Args
}

// newSession returns a session holding the default program with the
// template and quoting chosen by flags and configuration.
func (f *sessionFlags) newSession() *session.Session {
	cfg := settings()
	opts := []session.Option{
		session.WithLogger(logger()),
		session.WithTemplate(f.template()),
	}
	if f.ansiC || cfg.Compile.ANSIC {
		opts = append(opts, session.WithCommandOptions(shellcmd.WithANSIC()))
	}
	return session.New(opts...)
}
