// Copyright © 2024 The runcoliru authors

// Package annotate maps parsed diagnostics onto the line/column coordinate
// system of an edited document. Diagnostics that point outside the document
// (a header that is not open, an off-by-one from a multi-file build) are
// dropped with a warning and never cause a failure.
package annotate

import (
	"path"
	"strings"

	"github.com/luthersystems/runcoliru/diagnostic"
	"github.com/luthersystems/runcoliru/source"
	"go.uber.org/zap"
)

// Document is the text buffer diagnostics are placed on.
type Document interface {
	// LineCount returns the number of lines in the document.
	LineCount() int

	// LineLength returns the length in bytes of the 1-based line, or 0 if
	// the line does not exist.
	LineLength(line int) int
}

// Text is a Document backed by a string.
type Text string

// LineCount returns the number of lines in t. An empty text has one line.
func (t Text) LineCount() int {
	return strings.Count(string(t), "\n") + 1
}

// LineLength returns the length of the 1-based line without its newline.
func (t Text) LineLength(line int) int {
	if line < 1 {
		return 0
	}
	s := string(t)
	for i := 1; i < line; i++ {
		nl := strings.IndexByte(s, '\n')
		if nl < 0 {
			return 0
		}
		s = s[nl+1:]
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[:nl]
	}
	return len(strings.TrimSuffix(s, "\r"))
}

// Marker is a diagnostic placed on a document.
type Marker struct {
	File        string
	Severity    diagnostic.Severity
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	Message     string
}

// Actionable reports whether d can be placed on doc.
func Actionable(d diagnostic.Diagnostic, doc Document) bool {
	return d.Line >= 1 && d.Line <= doc.LineCount()
}

// Annotator filters diagnostics against documents and converts them to
// markers.
type Annotator struct {
	// Logger receives a warning for every dropped diagnostic. Nil means no
	// logging.
	Logger *zap.Logger
}

func (a *Annotator) logger() *zap.Logger {
	if a == nil || a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// Filter returns the diagnostics in diags that are actionable on doc, in
// their original order.
func (a *Annotator) Filter(diags []diagnostic.Diagnostic, doc Document) []diagnostic.Diagnostic {
	lineCount := doc.LineCount()
	var kept []diagnostic.Diagnostic
	for _, d := range diags {
		if !Actionable(d, doc) {
			a.logger().Warn("invalid line number",
				zap.String("file", d.File),
				zap.Int("line", d.Line),
				zap.Int("lineCount", lineCount))
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// Annotate filters diags against doc and returns one marker per kept
// diagnostic along with the counts of the kept diagnostics.
func (a *Annotator) Annotate(diags []diagnostic.Diagnostic, doc Document) ([]Marker, diagnostic.Counts) {
	kept := a.Filter(diags, doc)
	markers := make([]Marker, 0, len(kept))
	for _, d := range kept {
		markers = append(markers, toMarker(d, doc))
	}
	return markers, diagnostic.Summarize(kept)
}

// FilterFiles keeps the diagnostics that are actionable on the member of
// files they name and renames them to that member. Diagnostics for files
// outside the set, such as system headers, are dropped with a warning.
func (a *Annotator) FilterFiles(diags []diagnostic.Diagnostic, files []source.File) []diagnostic.Diagnostic {
	var kept []diagnostic.Diagnostic
	for _, d := range diags {
		f, ok := Lookup(files, d.File)
		if !ok {
			a.logger().Warn("diagnostic for unknown file",
				zap.String("file", d.File),
				zap.Int("line", d.Line))
			continue
		}
		d.File = f.Name
		kept = append(kept, a.Filter([]diagnostic.Diagnostic{d}, Text(f.Content))...)
	}
	return kept
}

// Lookup returns the member of files a compiler-reported name refers to,
// comparing cleaned paths first and base names second.
func Lookup(files []source.File, name string) (source.File, bool) {
	for _, f := range files {
		if SameFile(f.Name, name) {
			return f, true
		}
	}
	for _, f := range files {
		if f.Name == path.Base(name) {
			return f, true
		}
	}
	return source.File{}, false
}

// toMarker converts an actionable diagnostic. A placeholder range covers
// the rest of the line; a caret range is clamped to the line.
func toMarker(d diagnostic.Diagnostic, doc Document) Marker {
	lineEnd := doc.LineLength(d.Line) + 1
	start := d.StartColumn
	if start < 1 {
		start = 1
	}
	if start > lineEnd {
		start = lineEnd
	}
	end := d.EndColumn
	if d.Placeholder() || end > lineEnd {
		end = lineEnd
	}
	if end < start {
		end = start
	}
	return Marker{
		File:        d.File,
		Severity:    d.Severity,
		StartLine:   d.Line,
		StartColumn: start,
		EndLine:     d.Line,
		EndColumn:   end,
		Message:     d.Message,
	}
}

// SameFile reports whether two file names refer to the same playground
// file. Compilers may print "./main.cpp" for the tab "main.cpp".
func SameFile(a, b string) bool {
	return path.Clean(a) == path.Clean(b)
}

// ForFile returns the diagnostics in diags reported against name.
func ForFile(name string, diags []diagnostic.Diagnostic) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range diags {
		if SameFile(d.File, name) {
			out = append(out, d)
		}
	}
	return out
}
