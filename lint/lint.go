// Copyright © 2024 The runcoliru authors

// Package lint provides preflight checks for a playground before its
// command is sent to the compile service.
//
// The linter is modeled after go vet: each check is an independent Analyzer
// that receives the files and the command template and reports diagnostics.
// The framework runs analyzers, collects results, and formats output.
package lint

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/luthersystems/runcoliru/source"
)

// TemplateFile is the pseudo file name used for findings about the command
// template rather than a source file.
const TemplateFile = "<args>"

// Severity indicates the severity level of a lint diagnostic.
type Severity int

const (
	severityUnset Severity = iota // unexported zero sentinel for default detection
	SeverityError
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the severity as a JSON string.
// An unset severity (zero value) is marshaled as "warning".
func (s Severity) MarshalJSON() ([]byte, error) {
	if s == severityUnset {
		return json.Marshal("warning")
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON deserializes a severity from a JSON string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity: %q", str)
	}
	return nil
}

// Request is the input to a lint run: what would be sent to the compiler.
type Request struct {
	Files    []source.File
	Template string
}

// Analyzer defines a single lint check.
type Analyzer struct {
	// Name is a short identifier for this check (e.g. "empty-file").
	Name string

	// Doc is a human-readable description. The first line is a short summary.
	Doc string

	// Severity is the default severity for diagnostics from this analyzer.
	Severity Severity

	// Run executes the check. It should call pass.Report() for each finding.
	Run func(pass *Pass) error
}

// Pass provides context to a running analyzer.
type Pass struct {
	// Analyzer is the currently running check.
	Analyzer *Analyzer

	// Request is the playground being checked.
	Request *Request

	diagnostics []Diagnostic
}

// Report records a diagnostic finding.
func (p *Pass) Report(d Diagnostic) {
	d.Analyzer = p.Analyzer.Name
	if d.Severity == severityUnset {
		d.Severity = p.Analyzer.Severity
	}
	p.diagnostics = append(p.diagnostics, d)
}

// ReportWithNotes records a diagnostic with additional hint text.
func (p *Pass) ReportWithNotes(d Diagnostic, notes ...string) {
	d.Notes = append(d.Notes, notes...)
	p.Report(d)
}

// Reportf is a convenience for reporting a diagnostic against a file.
func (p *Pass) Reportf(file string, format string, args ...interface{}) {
	p.Report(Diagnostic{
		Pos:     Position{File: file, Line: 1},
		Message: fmt.Sprintf(format, args...),
	})
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	// Pos is the source location of the problem.
	Pos Position `json:"pos"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`

	// Analyzer is the name of the check that found this problem.
	Analyzer string `json:"analyzer"`

	// Severity is the severity level of the diagnostic.
	Severity Severity `json:"severity"`

	// Notes are optional hint text lines for the user.
	Notes []string `json:"notes,omitempty"`
}

// Position identifies a location in a playground.
type Position struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col,omitempty"`
}

// String returns the position in file:line format.
func (p Position) String() string {
	if p.Line == 0 {
		return p.File
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// String returns the diagnostic in go vet style: file:line: message (analyzer)
// with optional note lines appended.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s (%s)", d.Pos, d.Message, d.Analyzer)
	for _, n := range d.Notes {
		s += "\n  = note: " + n
	}
	return s
}

// Linter runs a set of analyzers over a playground.
type Linter struct {
	Analyzers []*Analyzer
}

// Lint runs every analyzer over req and returns the findings sorted by
// file. Findings about a file whose first line carries a nolint directive
// are dropped.
func (l *Linter) Lint(req Request) ([]Diagnostic, error) {
	var all []Diagnostic
	for _, analyzer := range l.Analyzers {
		pass := &Pass{
			Analyzer: analyzer,
			Request:  &req,
		}
		if err := analyzer.Run(pass); err != nil {
			return nil, fmt.Errorf("analyzer %s: %w", analyzer.Name, err)
		}
		all = append(all, pass.diagnostics...)
	}

	all = filterSuppressed(all, req.Files)

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Pos.File != all[j].Pos.File {
			return all[i].Pos.File < all[j].Pos.File
		}
		return all[i].Pos.Line < all[j].Pos.Line
	})
	return all, nil
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// filterSuppressed removes diagnostics for files that opt out with a
// "// nolint" or "// nolint:check1,check2" comment on their first line.
func filterSuppressed(diags []Diagnostic, files []source.File) []Diagnostic {
	directives := make(map[string]string) // file -> "" (all) or "check1,check2"
	for _, f := range files {
		if dir, ok := nolintDirective(f.Content); ok {
			directives[f.Name] = dir
		}
	}

	var filtered []Diagnostic
	for _, d := range diags {
		directive, ok := directives[d.Pos.File]
		if !ok {
			filtered = append(filtered, d)
			continue
		}
		if directive == "" {
			continue
		}
		suppressed := false
		for _, name := range strings.Split(directive, ",") {
			if strings.TrimSpace(name) == d.Analyzer {
				suppressed = true
				break
			}
		}
		if !suppressed {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

func nolintDirective(content string) (string, bool) {
	first, _, _ := strings.Cut(content, "\n")
	text := strings.TrimSpace(first)
	switch {
	case strings.HasPrefix(text, "//"):
		text = strings.TrimPrefix(text, "//")
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	default:
		return "", false
	}
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "nolint") {
		return "", false
	}
	rest := strings.TrimPrefix(text, "nolint")
	if rest == "" {
		return "", true
	}
	if strings.HasPrefix(rest, ":") {
		return strings.TrimPrefix(rest, ":"), true
	}
	return "", false
}

// FormatText writes diagnostics in go vet text format.
func FormatText(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String()) //nolint:errcheck // best-effort output to writer
	}
}

// FormatJSON writes diagnostics as JSON.
func FormatJSON(w io.Writer, diags []Diagnostic) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}

// DefaultAnalyzers returns the built-in set of lint checks.
func DefaultAnalyzers() []*Analyzer {
	return []*Analyzer{
		AnalyzerEmptyTemplate,
		AnalyzerDuplicateName,
		AnalyzerInvalidName,
		AnalyzerMissingPlaceholder,
		AnalyzerNoCompiledSources,
		AnalyzerEmptyFile,
	}
}

// AnalyzerNames returns the names of the given analyzers.
func AnalyzerNames(analyzers []*Analyzer) []string {
	names := make([]string, len(analyzers))
	for i, a := range analyzers {
		names[i] = a.Name
	}
	return names
}

// AnalyzerDoc returns the first line of an analyzer's Doc.
func AnalyzerDoc(a *Analyzer) string {
	doc, _, _ := strings.Cut(a.Doc, "\n")
	return doc
}

// SelectAnalyzers returns the analyzers in all whose names appear in the
// comma-separated list. An unknown name is an error.
func SelectAnalyzers(all []*Analyzer, list string) ([]*Analyzer, error) {
	byName := make(map[string]*Analyzer, len(all))
	for _, a := range all {
		byName[a.Name] = a
	}
	var selected []*Analyzer
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		a, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown check: %s", name)
		}
		selected = append(selected, a)
	}
	return selected, nil
}
