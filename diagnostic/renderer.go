// Copyright © 2024 The runcoliru authors

package diagnostic

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// Renderer formats diagnostics as Rust-style annotated source snippets.
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// SourceReader reads source file contents. If nil, os.ReadFile is used.
	// Playground sessions pass source.Lookup so that snippets come from the
	// edited buffers rather than the local disk.
	SourceReader func(string) ([]byte, error)
}

// Render writes a single diagnostic to w.
func (r *Renderer) Render(w io.Writer, d Diagnostic) error {
	p := choosePalette(r.Color, w)
	bw := bufio.NewWriter(w)
	ew := &errWriter{w: bw}

	r.writeHeader(ew, d, p)
	if d.File != "" {
		r.writeSpan(ew, d, p)
	}
	for _, note := range d.Notes {
		ew.printf("   %s note: %s\n", p.boldCyan.Sprint("="), note)
	}

	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

// RenderAll writes all diagnostics to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, diags []Diagnostic) error {
	for i, d := range diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.Render(w, d); err != nil {
			return err
		}
	}
	return nil
}

// RenderCounts writes a one-line summary per file, e.g.
// "main.cpp: 2 errors, 1 warning", or "no diagnostics" when counts is empty.
func (r *Renderer) RenderCounts(w io.Writer, counts Counts) error {
	p := choosePalette(r.Color, w)
	ew := &errWriter{w: w}
	for _, name := range counts.Files() {
		c := counts[name]
		ew.printf("%s: %s, %s\n", p.bold.Sprint(name),
			plural(c.Errors, "error", p.boldRed), plural(c.Warnings, "warning", p.yellow))
	}
	t := counts.Total()
	if t.Errors == 0 && t.Warnings == 0 {
		ew.printf("%s\n", p.boldGreen.Sprint("no diagnostics"))
	}
	return ew.err
}

func plural(n int, word string, c interface{ Sprint(...interface{}) string }) string {
	s := fmt.Sprintf("%d %s", n, word)
	if n != 1 {
		s += "s"
	}
	if n == 0 {
		return s
	}
	return c.Sprint(s)
}

// errWriter wraps a writer and captures the first error, short-circuiting
// subsequent writes. This avoids checking every fmt.Fprintf return value.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, a...)
}

func (r *Renderer) writeHeader(ew *errWriter, d Diagnostic, p palette) {
	var sev string
	switch d.Severity {
	case SeverityError:
		sev = p.boldRed.Sprint("error")
	case SeverityWarning:
		sev = p.yellow.Sprint("warning")
	case SeverityNote:
		sev = p.boldCyan.Sprint("note")
	default:
		sev = d.Severity.String()
	}
	ew.printf("%s: %s\n", sev, p.bold.Sprint(d.Message))
}

func (r *Renderer) writeSpan(ew *errWriter, d Diagnostic, p palette) {
	// Location line: "  --> file:line:col"
	loc := d.File
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.File, d.Line)
		if d.StartColumn > 0 {
			loc = fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.StartColumn)
		}
	}
	arrow := p.boldBlue.Sprint("-->")
	bar := p.boldBlue.Sprint("|")
	ew.printf("  %s %s\n", arrow, loc)

	source, ok := r.readSourceLine(d.File, d.Line)
	if !ok {
		// No source available — just show the location line with a gutter
		ew.printf("   %s\n", bar)
		return
	}

	lineStr := fmt.Sprintf("%d", d.Line)
	pad := strings.Repeat(" ", len(lineStr))

	ew.printf(" %s %s\n", pad, bar)

	// Replace tabs with spaces for consistent alignment
	displaySource := strings.ReplaceAll(source, "\t", "    ")
	ew.printf(" %s %s  %s\n", p.boldBlue.Sprint(lineStr), bar, displaySource)

	col := d.StartColumn
	if col <= 0 {
		col = 1
	}
	endCol := d.EndColumn
	if d.Placeholder() {
		endCol = detectEndCol(source, col)
	}
	underLen := endCol - col
	if underLen < 1 {
		underLen = 1
	}

	// Account for tab expansion in positioning
	prefix := ""
	if col > 1 && col-1 <= len(source) {
		prefix = source[:col-1]
	}
	underPad := strings.Repeat(" ", displayWidth(prefix))
	underline := p.boldRed.Sprint(strings.Repeat("^", underLen))
	if d.Severity == SeverityWarning {
		underline = p.yellow.Sprint(strings.Repeat("^", underLen))
	}
	ew.printf(" %s %s  %s%s\n", pad, bar, underPad, underline)
	ew.printf(" %s %s\n", pad, bar)
}

// readSourceLine returns the 1-based line of file, or false when the file
// or the line is unavailable.
func (r *Renderer) readSourceLine(file string, line int) (string, bool) {
	if line <= 0 || file == "" {
		return "", false
	}
	reader := r.SourceReader
	if reader == nil {
		reader = func(name string) ([]byte, error) {
			return os.ReadFile(name) //nolint:gosec // reads user-specified source files for display
		}
	}
	data, err := reader(file)
	if err != nil {
		return "", false
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for i := 1; scanner.Scan(); i++ {
		if i == line {
			return scanner.Text(), true
		}
	}
	return "", false
}

// detectEndCol returns the exclusive 1-based end of the C/C++ token that
// starts at col. Non-identifier characters are underlined on their own.
func detectEndCol(source string, col int) int {
	if col <= 0 || col > len(source) {
		return col + 1
	}
	end := col - 1 // 0-based
	for end < len(source) && isIdentByte(source[end]) {
		end++
	}
	if end == col-1 {
		return col + 1 // single character
	}
	return end + 1
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// displayWidth returns the display width of a string, expanding tabs to 4 spaces.
func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}
