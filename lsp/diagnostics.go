// Copyright © 2024 The runcoliru authors

package lsp

import (
	"time"

	"github.com/luthersystems/runcoliru/annotate"
	"github.com/luthersystems/runcoliru/diagnostic"
	"github.com/luthersystems/runcoliru/lint"
	"github.com/luthersystems/runcoliru/source"
	"github.com/tliron/glsp"
	"go.uber.org/zap"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const debounceDelay = 300 * time.Millisecond

const (
	compileSource = "coliru"
	lintSource    = "runcoliru-lint"
)

// textDocumentDidOpen handles the textDocument/didOpen notification.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	s.docs.Open(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		params.TextDocument.Text,
	)
	// Lint findings depend on the whole set of files.
	s.publishAll()
	return nil
}

// textDocumentDidChange handles the textDocument/didChange notification.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// With full sync, the last content change is the complete document.
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	doc := s.docs.Change(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		content,
	)

	// Debounce: delay linting to avoid thrashing during rapid edits.
	s.debounceMu.Lock()
	if t, ok := s.debounce[doc.URI]; ok {
		t.Stop()
	}
	s.debounce[doc.URI] = time.AfterFunc(debounceDelay, func() {
		defer func() { _ = recover() }() // don't crash the server on lint panic
		s.publishAll()
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave handles the textDocument/didSave notification.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	s.cancelDebounce(params.TextDocument.URI)

	if s.compileOnSave {
		go func() {
			defer func() { _ = recover() }() // don't crash the server on compile panic
			if _, err := s.compile(); err != nil {
				s.logger.Warn("compile on save failed", zap.Error(err))
			}
		}()
		return nil
	}
	s.publishAll()
	return nil
}

// textDocumentDidClose handles the textDocument/didClose notification.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.cancelDebounce(params.TextDocument.URI)

	// Clear diagnostics for the closed file.
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})

	s.docs.Close(params.TextDocument.URI)
	s.publishAll()
	return nil
}

func (s *Server) cancelDebounce(uri string) {
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// publishAll lints the open documents as one playground and publishes, for
// every document, its lint findings followed by the markers of the last
// compilation. Findings about the command template are published on the
// entry point document.
func (s *Server) publishAll() {
	docs := s.docs.All()
	if len(docs) == 0 {
		return
	}
	files := s.docs.Files()
	lintDiags, err := s.linter.Lint(lint.Request{Files: files, Template: s.sess.Template()})
	if err != nil {
		s.logger.Warn("lint failed", zap.Error(err))
		lintDiags = nil
	}
	entry := source.EntryPoint(files)

	for _, doc := range docs {
		doc.mu.Lock()
		name := doc.Name
		uri := doc.URI
		compiled := append([]protocol.Diagnostic(nil), doc.compiled...)
		doc.mu.Unlock()

		diags := []protocol.Diagnostic{}
		for _, d := range lintDiags {
			if d.Pos.File == name || (d.Pos.File == lint.TemplateFile && name == entry) {
				diags = append(diags, convertLintDiagnostic(d))
			}
		}
		diags = append(diags, compiled...)

		s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
			URI:         uri,
			Diagnostics: diags,
		})
	}
}

// convertLintDiagnostic converts a lint.Diagnostic to an LSP Diagnostic.
// Lint findings concern whole files and are placed at the start of the
// first line.
func convertLintDiagnostic(d lint.Diagnostic) protocol.Diagnostic {
	line := d.Pos.Line
	col := d.Pos.Col
	if line > 0 {
		line--
	}
	if col > 0 {
		col--
	}
	start := protocol.Position{Line: safeUint(line), Character: safeUint(col)}
	sev := mapLintSeverity(d.Severity)
	msg := d.Message
	for _, n := range d.Notes {
		msg += "\nnote: " + n
	}
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: start},
		Severity: &sev,
		Source:   strPtr(lintSource),
		Code:     &protocol.IntegerOrString{Value: d.Analyzer},
		Message:  msg,
	}
}

// convertMarker converts a compiler diagnostic placed on a document.
func convertMarker(m annotate.Marker) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    markerRange(m),
		Severity: severity(mapSeverity(m.Severity)),
		Source:   strPtr(compileSource),
		Message:  m.Message,
	}
}

// mapLintSeverity converts a lint.Severity to a protocol.DiagnosticSeverity.
func mapLintSeverity(sev lint.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case lint.SeverityError:
		return protocol.DiagnosticSeverityError
	case lint.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case lint.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityWarning
	}
}

// mapSeverity converts a compiler severity.
func mapSeverity(sev diagnostic.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case diagnostic.SeverityError:
		return protocol.DiagnosticSeverityError
	case diagnostic.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

func severity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func strPtr(s string) *string {
	return &s
}
