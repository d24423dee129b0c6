// Copyright © 2024 The runcoliru authors

// Package parser turns raw GCC/Clang output returned by the compile service
// into structured diagnostics.
//
// Parsing is a single pass over the lines of the output. Three pieces of
// state carry from one line to the next: the file named by the last bare
// "file:" line, the function named by the last "In function '...':" line,
// and a pending diagnostic whose column range may still be narrowed by a
// following caret line. Lines that match none of the recognized shapes are
// skipped, so linker chatter and program output never cause an error.
package parser

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/luthersystems/runcoliru/diagnostic"
)

var (
	// "main.cpp:" alone on a line. The path may not contain whitespace so
	// that "main.cpp: In function 'int main()':" is not taken as a file line.
	fileLine = regexp.MustCompile(`^(\S+):$`)

	// "In function 'int main()':", optionally prefixed by "file: " as GCC
	// prints it.
	functionLine = regexp.MustCompile(`^(?:(\S+): )?In (?:member |static member )?function '(.+)':$`)

	// "main.cpp: At global scope:" ends the current function context.
	globalScopeLine = regexp.MustCompile(`^(?:(\S+): )?At global scope:$`)

	// "main.cpp:3:5: error: message".
	diagnosticLine = regexp.MustCompile(`^(.+):(\d+):(\d+):\s*(fatal error|error|warning):\s*(.+)$`)

	// Modern GCC prints caret lines behind a "   |" gutter.
	caretGutter = regexp.MustCompile(`^ *\| ?`)

	// "    ^~~~" with the caret run in group 2.
	caretLine = regexp.MustCompile(`^( *)(\^+)~*\s*$`)
)

// Parse extracts diagnostics from compiler output in the order their
// error or warning lines appear. It holds no state between calls.
func Parse(raw string) []diagnostic.Diagnostic {
	var s scanState
	for _, line := range strings.Split(raw, "\n") {
		s.scan(strings.TrimSuffix(line, "\r"))
	}
	return s.finish()
}

// ParseReader reads r to the end and parses its contents.
func ParseReader(r io.Reader) ([]diagnostic.Diagnostic, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(string(b)), nil
}

// scanState is the line-to-line state of one Parse call.
type scanState struct {
	currentFile     string
	currentFunction string
	pending         *diagnostic.Diagnostic
	diags           []diagnostic.Diagnostic
}

// scan applies the transition rules to one line, in priority order.
func (s *scanState) scan(line string) {
	if m := fileLine.FindStringSubmatch(line); m != nil {
		s.currentFile = m[1]
		return
	}
	if m := functionLine.FindStringSubmatch(line); m != nil {
		if m[1] != "" {
			s.currentFile = m[1]
		}
		s.currentFunction = m[2]
		return
	}
	if m := globalScopeLine.FindStringSubmatch(line); m != nil {
		if m[1] != "" {
			s.currentFile = m[1]
		}
		s.currentFunction = ""
		return
	}
	if d, ok := s.diagnostic(line); ok {
		s.flush()
		s.pending = &d
		return
	}
	if s.pending == nil {
		return
	}
	if start, end, ok := caretRange(line); ok {
		s.pending.StartColumn = start
		s.pending.EndColumn = end
		s.flush()
	}
}

// diagnostic parses an error or warning line. The column range starts as
// the single-column placeholder [col, col).
func (s *scanState) diagnostic(line string) (diagnostic.Diagnostic, bool) {
	m := diagnosticLine.FindStringSubmatch(line)
	if m == nil {
		return diagnostic.Diagnostic{}, false
	}
	lineNo, err := strconv.Atoi(m[2])
	if err != nil {
		return diagnostic.Diagnostic{}, false
	}
	col, err := strconv.Atoi(m[3])
	if err != nil {
		return diagnostic.Diagnostic{}, false
	}
	sev := diagnostic.SeverityError
	if m[4] == "warning" {
		sev = diagnostic.SeverityWarning
	}
	msg := m[5]
	if s.currentFunction != "" {
		msg = "In function '" + s.currentFunction + "': " + msg
	}
	return diagnostic.Diagnostic{
		File:        m[1],
		Line:        lineNo,
		StartColumn: col,
		EndColumn:   col,
		Severity:    sev,
		Message:     msg,
	}, true
}

// flush emits the pending diagnostic, if any.
func (s *scanState) flush() {
	if s.pending == nil {
		return
	}
	s.diags = append(s.diags, *s.pending)
	s.pending = nil
}

func (s *scanState) finish() []diagnostic.Diagnostic {
	s.flush()
	return s.diags
}

// caretRange returns the 1-based [start, end) columns marked by a caret
// line: start is one past the index of the first '^' and end is one past
// the index following the run of '^'. Trailing '~' characters are accepted
// but do not widen the range.
func caretRange(line string) (start, end int, ok bool) {
	if loc := caretGutter.FindStringIndex(line); loc != nil {
		line = line[loc[1]:]
	}
	m := caretLine.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, 0, false
	}
	return m[4] + 1, m[5] + 1, true
}
