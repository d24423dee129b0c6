// Copyright © 2024 The runcoliru authors

// Package lsp implements a Language Server Protocol server for playground
// files. Open documents form the playground: they are linted as they change
// and compiled on the remote service on request, with compiler diagnostics
// published back onto the documents they concern.
package lsp

import (
	"os"
	"sync"
	"time"

	"github.com/luthersystems/runcoliru/annotate"
	"github.com/luthersystems/runcoliru/lint"
	"github.com/luthersystems/runcoliru/session"
	"github.com/tliron/glsp"
	glspserver "github.com/tliron/glsp/server"
	"go.uber.org/zap"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const serverName = "runcoliru-lsp"

// Server is the playground language server.
type Server struct {
	handler protocol.Handler
	glspSrv *glspserver.Server
	docs    *DocumentStore

	linter    *lint.Linter
	annotator *annotate.Annotator
	logger    *zap.Logger

	// sess holds the compile state. Its files are replaced by the open
	// documents before every compilation.
	sess          *session.Session
	compiler      session.Compiler
	compileOnSave bool

	// Debouncer for didChange notifications.
	debounceMu sync.Mutex
	debounce   map[string]*time.Timer

	// Context for sending notifications (captured from latest request).
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc

	// exitFn is called on the LSP exit notification. Defaults to os.Exit.
	// Overridable for testing.
	exitFn func(int)
}

// Option configures the LSP server.
type Option func(*Server)

// WithLogger sets the logger used for dropped diagnostics and compile
// failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCompiler sets the service used by the compile command.
func WithCompiler(c session.Compiler) Option {
	return func(s *Server) { s.compiler = c }
}

// WithSession replaces the session that holds the command template and
// the compile history.
func WithSession(sess *session.Session) Option {
	return func(s *Server) { s.sess = sess }
}

// WithLinter replaces the default lint checks.
func WithLinter(l *lint.Linter) Option {
	return func(s *Server) { s.linter = l }
}

// WithCompileOnSave makes didSave trigger a compilation.
func WithCompileOnSave(on bool) Option {
	return func(s *Server) { s.compileOnSave = on }
}

// New creates a new playground LSP server.
func New(opts ...Option) *Server {
	s := &Server{
		docs:     NewDocumentStore(),
		linter:   &lint.Linter{Analyzers: lint.DefaultAnalyzers()},
		logger:   zap.NewNop(),
		debounce: make(map[string]*time.Timer),
		exitFn:   os.Exit,
	}
	for _, o := range opts {
		o(s)
	}
	if s.sess == nil {
		s.sess = session.New(session.WithLogger(s.logger))
	}
	s.annotator = &annotate.Annotator{Logger: s.logger}

	s.handler = protocol.Handler{
		Initialize: s.initialize,
		Shutdown:   s.shutdown,
		Exit:       s.exit,
		SetTrace:   s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		WorkspaceExecuteCommand: s.workspaceExecuteCommand,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio starts the server using stdio transport.
func (s *Server) RunStdio() error {
	return s.glspSrv.RunStdio()
}

// RunTCP starts the server listening on the given address.
func (s *Server) RunTCP(addr string) error {
	return s.glspSrv.RunTCP(addr)
}

// initialize handles the LSP initialize request.
func (s *Server) initialize(ctx *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	s.captureNotify(ctx)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: boolPtr(false)},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandCompile},
	}

	version := "0.1.0"
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// shutdown handles the LSP shutdown request.
func (s *Server) shutdown(_ *glsp.Context) error {
	s.debounceMu.Lock()
	for _, t := range s.debounce {
		t.Stop()
	}
	s.debounce = make(map[string]*time.Timer)
	s.debounceMu.Unlock()
	return nil
}

// exit handles the LSP exit notification by terminating the process.
func (s *Server) exit(_ *glsp.Context) error {
	s.exitFn(0)
	return nil
}

// setTrace handles the $/setTrace notification (required by some clients).
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

// captureNotify stores the notification function from the context for
// async use (e.g., publishing diagnostics after a debounce).
func (s *Server) captureNotify(ctx *glsp.Context) {
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.notifyMu.Unlock()
}

// sendNotification sends a notification to the client.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}

// showMessage asks the client to display msg.
func (s *Server) showMessage(typ protocol.MessageType, msg string) {
	s.sendNotification(protocol.ServerWindowShowMessage, &protocol.ShowMessageParams{
		Type:    typ,
		Message: msg,
	})
}

func boolPtr(b bool) *bool {
	return &b
}
