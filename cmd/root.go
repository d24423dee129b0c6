// Copyright © 2024 The runcoliru authors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/luthersystems/runcoliru/config"
	"github.com/luthersystems/runcoliru/tracing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	colorFlag string
	logLevel  string
)

// app holds what the root command sets up before any subcommand runs.
// Commands built by the exported factories and executed on their own see
// the built-in defaults.
var app struct {
	cfg    *config.Config
	logger *zap.Logger
	tracer *tracing.Provider
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "runcoliru",
	Short: "Compile and run C/C++ playgrounds on Coliru",
	Long: `runcoliru is a command line playground for C and C++. It sends files to
the Coliru remote compile service, prints the program output, and renders
the GCC diagnostics found in it against the local sources.

Getting started:
  runcoliru compile main.cpp util.hpp   Compile and run files
  runcoliru command main.cpp            Print the command sent to Coliru
  runcoliru shell                       Start an interactive session
  runcoliru gist <id or url>            Load a GitHub gist into the tabs
  runcoliru parse build.log             Find diagnostics in saved output
  runcoliru lint ./...                  Check files before compiling
  runcoliru zip -o project.zip          Export the tabs with a Makefile
  runcoliru lsp                         Start the language server

Only files ending in .cpp are compiled. Headers (.h, .hpp) and .c files
are uploaded alongside them so they can be included. The compile command
template replaces ${cppFiles} with the .cpp file names.

Configuration is read from --config, or $HOME/.runcoliru.yaml, and from
RUNCOLIRU_* environment variables, e.g. RUNCOLIRU_COLIRU_URL.

Exit codes:
  0  success
  1  the compiler reported errors or lint problems were found
  2  bad invocation, unreadable files, or the service could not be reached`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// exitError carries a process exit code. A nil err means the command has
// already reported the problem.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// exitCode returns the exit code for an error returned by a command.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 2
}

// problemsFound is returned when a command reported errors to the user.
var problemsFound = &exitError{code: 1}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	var ee *exitError
	if !errors.As(err, &ee) || ee.err != nil {
		fmt.Fprintln(os.Stderr, "runcoliru:", err)
	}
	os.Exit(exitCode(err))
}

func init() {
	cobra.OnFinalize(teardown)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.runcoliru.yaml)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override the configured log level (debug, info, warn, error).")
}

// setup loads configuration and builds the logger and tracer.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if !cmd.Flags().Changed("color") {
		colorFlag = cfg.Color
	}
	lg, err := cfg.Log.Logger()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	if cfg.File != "" {
		lg.Debug("using config file", zap.String("path", cfg.File))
	}
	for _, w := range cfg.Validate() {
		lg.Warn(w)
	}

	tc := tracing.DefaultConfig()
	tc.Endpoint = cfg.Tracing.Endpoint
	tc.SampleRate = cfg.Tracing.SampleRate
	tp, err := tracing.Init(cmd.Context(), tc)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	app.cfg = cfg
	app.logger = lg
	app.tracer = tp
	return nil
}

// teardown flushes spans and logs after every command, including failed ones.
func teardown() {
	if app.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.tracer.Shutdown(ctx); err != nil {
			logger().Warn("tracer shutdown failed", zap.Error(err))
		}
		app.tracer = nil
	}
	if app.logger != nil {
		_ = app.logger.Sync()
	}
}

func settings() *config.Config {
	if app.cfg == nil {
		return config.Default()
	}
	return app.cfg
}

func logger() *zap.Logger {
	if app.logger == nil {
		return zap.NewNop()
	}
	return app.logger
}

func tracerProvider() *tracing.Provider {
	if app.tracer == nil {
		p, _ := tracing.Init(context.Background(), tracing.DefaultConfig())
		return p
	}
	return app.tracer
}
