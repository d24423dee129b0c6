// Copyright © 2024 The runcoliru authors

package cmd

import (
	"fmt"

	"github.com/luthersystems/runcoliru/lsp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// LSPCommand creates the "lsp" cobra command with optional embedder
// configuration. Embedders can pass WithCompiler to compile somewhere
// other than Coliru.
func LSPCommand(opts ...Option) *cobra.Command {
	c := newCmdConfig(opts)

	var (
		sf            sessionFlags
		stdio         bool
		port          int
		compileOnSave bool
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the runcoliru Language Server Protocol server",
		Long: `Start an LSP server for C/C++ playground files.

Every open document is a playground file named by its base name. The server
lints the open files as they change and compiles them on Coliru when the
client runs the "runcoliru.compile" command, or on save with
--compile-on-save. Compiler diagnostics are published against the open
documents with their caret ranges.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Examples:
  runcoliru lsp                           Start with stdio transport
  runcoliru lsp --stdio                   Same as above (explicit)
  runcoliru lsp --port 7998               Start with TCP on port 7998
  runcoliru lsp --compile-on-save         Compile whenever a file is saved

Editor configuration (VS Code):
  Install a generic LSP client extension and configure it to run
  "runcoliru lsp --stdio" for .c, .cpp, .h and .hpp files.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			srv := lsp.New(
				lsp.WithLogger(logger()),
				lsp.WithSession(sf.newSession()),
				lsp.WithCompiler(c.resolveCompiler()),
				lsp.WithCompileOnSave(compileOnSave),
			)

			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				logger().Info("runcoliru LSP server listening", zap.String("addr", addr))
				if err := srv.RunTCP(addr); err != nil {
					return fmt.Errorf("lsp server error: %w", err)
				}
				return nil
			}
			if err := srv.RunStdio(); err != nil {
				return fmt.Errorf("lsp server error: %w", err)
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior)")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for LSP server (use instead of --stdio)")
	cmd.Flags().BoolVar(&compileOnSave, "compile-on-save", false,
		"Compile the open files on Coliru whenever one is saved")

	return quiet(cmd)
}

func init() {
	rootCmd.AddCommand(LSPCommand())
}
