// Copyright © 2024 The runcoliru authors

package lsp

import (
	"context"
	"errors"
	"fmt"

	"github.com/luthersystems/runcoliru/annotate"
	"github.com/luthersystems/runcoliru/diagnostic"
	"github.com/luthersystems/runcoliru/session"
	"github.com/tliron/glsp"
	"go.uber.org/zap"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// CommandCompile is the workspace/executeCommand name that compiles the
// open documents. Its result is the raw service output.
const CommandCompile = "runcoliru.compile"

var (
	errNoCompiler  = errors.New("no compiler configured")
	errNoDocuments = errors.New("no open documents")
)

// workspaceExecuteCommand handles the workspace/executeCommand request.
func (s *Server) workspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	s.captureNotify(ctx)
	switch params.Command {
	case CommandCompile:
		out, err := s.compile()
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown command: %s", params.Command)
	}
}

// compile sends the open documents to the compiler and publishes the
// resulting diagnostics. Diagnostics for files that are not open are
// dropped.
func (s *Server) compile() (string, error) {
	if s.compiler == nil {
		return "", errNoCompiler
	}
	files := s.docs.Files()
	if len(files) == 0 {
		return "", errNoDocuments
	}
	if err := s.sess.Replace(files); err != nil {
		return "", err
	}
	res, err := s.sess.Compile(context.Background(), s.compiler)
	if errors.Is(err, session.ErrBusy) {
		s.showMessage(protocol.MessageTypeWarning, err.Error())
		return "", err
	}
	if err != nil {
		s.showMessage(protocol.MessageTypeError, s.sess.Output())
		return "", err
	}
	s.placeDiagnostics(res.Diagnostics)
	s.publishAll()

	total := res.Counts.Total()
	s.showMessage(protocol.MessageTypeInfo, fmt.Sprintf("compiled: %d errors, %d warnings", total.Errors, total.Warnings))
	return res.Output, nil
}

// placeDiagnostics groups diags by open document and stores each group as
// the document's compile markers.
func (s *Server) placeDiagnostics(diags []diagnostic.Diagnostic) {
	docs := s.docs.All()
	files := s.docs.Files()
	byName := make(map[string][]diagnostic.Diagnostic)
	for _, d := range diags {
		f, ok := annotate.Lookup(files, d.File)
		if !ok {
			s.logger.Warn("diagnostic for unopened file",
				zap.String("file", d.File),
				zap.Int("line", d.Line))
			continue
		}
		byName[f.Name] = append(byName[f.Name], d)
	}

	for _, doc := range docs {
		doc.mu.Lock()
		markers, _ := s.annotator.Annotate(byName[doc.Name], annotate.Text(doc.Content))
		compiled := make([]protocol.Diagnostic, 0, len(markers))
		for _, m := range markers {
			compiled = append(compiled, convertMarker(m))
		}
		doc.compiled = compiled
		doc.mu.Unlock()
	}
}
