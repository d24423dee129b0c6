// Copyright © 2024 The runcoliru authors

package cmd

import (
	"io"

	"github.com/luthersystems/runcoliru/diagnostic"
	lintpkg "github.com/luthersystems/runcoliru/lint"
	"github.com/luthersystems/runcoliru/source"
)

func colorMode() diagnostic.ColorMode {
	return diagnostic.ParseColorMode(colorFlag)
}

// newRenderer returns a renderer that reads source lines from files. With
// no files it reads from disk.
func newRenderer(files []source.File) *diagnostic.Renderer {
	r := &diagnostic.Renderer{Color: colorMode()}
	if len(files) > 0 {
		r.SourceReader = source.Lookup(files)
	}
	return r
}

// lintDiagToDiagnostic converts a lint.Diagnostic to a diagnostic.Diagnostic.
func lintDiagToDiagnostic(ld lintpkg.Diagnostic) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		File:        ld.Pos.File,
		Line:        ld.Pos.Line,
		StartColumn: ld.Pos.Col,
		EndColumn:   ld.Pos.Col,
		Message:     ld.Message + " (" + ld.Analyzer + ")",
	}
	switch ld.Severity {
	case lintpkg.SeverityError:
		d.Severity = diagnostic.SeverityError
	case lintpkg.SeverityInfo:
		d.Severity = diagnostic.SeverityNote
	default:
		d.Severity = diagnostic.SeverityWarning
	}
	if ld.Pos.File == lintpkg.TemplateFile {
		d.Line = 0
	}
	d.Notes = append(d.Notes, ld.Notes...)
	if ld.Pos.File != lintpkg.TemplateFile {
		d.Notes = append(d.Notes, "to suppress: start the file with \"// nolint:"+ld.Analyzer+"\"")
	}
	return d
}

// renderLintDiagnostics renders lint diagnostics with diagnostic formatting.
func renderLintDiagnostics(w io.Writer, diags []lintpkg.Diagnostic, files []source.File) error {
	ds := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, ld := range diags {
		ds = append(ds, lintDiagToDiagnostic(ld))
	}
	return newRenderer(files).RenderAll(w, ds)
}
