// Copyright © 2024 The runcoliru authors

// Package repl implements an interactive shell over a playground session.
// Lines starting with ':' are commands; see :help.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/luthersystems/runcoliru/diagnostic"
	"github.com/luthersystems/runcoliru/session"
	"github.com/luthersystems/runcoliru/store"
	"go.uber.org/zap"
)

// DefaultWidth is the wrap width of :history entries.
const DefaultWidth = 80

type config struct {
	stdin       io.ReadCloser
	stderr      io.WriteCloser
	historyFile string
	sess        *session.Session
	compiler    session.Compiler
	gists       session.GistLoader
	store       store.Store
	color       diagnostic.ColorMode
	width       int
	logger      *zap.Logger
}

func newConfig(opts ...Option) *config {
	config := &config{
		historyFile: historyPath(),
		width:       DefaultWidth,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.sess == nil {
		config.sess = session.New(session.WithLogger(config.logger))
	}
	return config
}

type Option func(*config)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStderr allows overriding the output to the REPL.
func WithStderr(stderr io.WriteCloser) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithHistoryFile sets the readline history file. An empty path disables
// history.
func WithHistoryFile(path string) Option {
	return func(c *config) { c.historyFile = path }
}

// WithSession sets the session the shell edits.
func WithSession(s *session.Session) Option {
	return func(c *config) { c.sess = s }
}

// WithCompiler sets the service used by :compile.
func WithCompiler(comp session.Compiler) Option {
	return func(c *config) { c.compiler = comp }
}

// WithGistLoader sets the loader used by :gist.
func WithGistLoader(l session.GistLoader) Option {
	return func(c *config) { c.gists = l }
}

// WithStore sets where :save and :gist persist the files.
func WithStore(st store.Store) Option {
	return func(c *config) { c.store = st }
}

// WithColor sets the color mode of rendered diagnostics.
func WithColor(mode diagnostic.ColorMode) Option {
	return func(c *config) { c.color = mode }
}

// WithWidth sets the wrap width of :history entries.
func WithWidth(n int) Option {
	return func(c *config) { c.width = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Run runs the shell until :quit or end of input.
func Run(ctx context.Context, prompt string, opts ...Option) error {
	cfg := newConfig(opts...)
	var out io.Writer = os.Stderr
	if cfg.stderr != nil {
		out = cfg.stderr
	}
	ensureHistoryFilePermissions(cfg.historyFile)

	sh := newShell(cfg, out)
	rlCfg := &readline.Config{
		Stdout:            out,
		Stderr:            out,
		Prompt:            prompt,
		HistoryFile:       cfg.historyFile,
		HistorySearchFold: true,
		AutoComplete:      &commandCompleter{sess: cfg.sess},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	next := func() (string, error) {
		for {
			line, err := rl.ReadSlice()
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if err != nil {
				return "", io.EOF
			}
			return string(line), nil
		}
	}

	fmt.Fprintf(out, "active file: %s (type :help for commands)\n", cfg.sess.Active()) //nolint:errcheck // best-effort REPL output
	for {
		line, err := next()
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := sh.handle(ctx, line, next); quit {
			return nil
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".runcoliru_history")
}

// ensureHistoryFilePermissions creates path with mode 0600, or restricts an
// existing file to 0600. History may contain pasted source code.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0600)
}
