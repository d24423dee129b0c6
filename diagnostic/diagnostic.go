// Copyright © 2024 The runcoliru authors

// Package diagnostic defines the structured form of compiler diagnostics and
// renders them as Rust-style annotated source snippets. It does not depend
// on how diagnostics are produced so that the parser, the linter, and the
// language server can all share it.
package diagnostic

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the severity as a JSON string.
func (s Severity) MarshalJSON() ([]byte, error) {
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
	case "note":
		*s = SeverityNote
	default:
		return fmt.Errorf("unknown severity: %q", str)
	}
	return nil
}

// Diagnostic is one compiler-reported error or warning localized to a
// file, a 1-based line and a 1-based column range [StartColumn, EndColumn).
// A range whose end equals its start has not been finalized by a caret
// line; see Placeholder.
type Diagnostic struct {
	File        string   `json:"file"`
	Line        int      `json:"line"`
	StartColumn int      `json:"startColumn"`
	EndColumn   int      `json:"endColumn"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`

	// Notes are optional "= note:" lines shown by the renderer.
	Notes []string `json:"notes,omitempty"`
}

// Placeholder reports whether the column range is still the single-column
// placeholder assigned when the diagnostic line was read.
func (d Diagnostic) Placeholder() bool {
	return d.EndColumn <= d.StartColumn
}

// String returns the diagnostic in compiler style: file:line:col: severity: message.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.StartColumn, d.Severity, d.Message)
}

// FileCounts tallies the diagnostics reported against one file.
type FileCounts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Counts maps a file name to its tallies. Files without diagnostics have
// no entry.
type Counts map[string]FileCounts

// Summarize aggregates diags by file. The result is always a fresh map; it
// never merges with a previous summary. Notes are not counted.
func Summarize(diags []Diagnostic) Counts {
	counts := make(Counts)
	for _, d := range diags {
		c := counts[d.File]
		switch d.Severity {
		case SeverityError:
			c.Errors++
		case SeverityWarning:
			c.Warnings++
		default:
			continue
		}
		counts[d.File] = c
	}
	return counts
}

// Total returns the sum of all tallies.
func (c Counts) Total() FileCounts {
	var t FileCounts
	for _, fc := range c {
		t.Errors += fc.Errors
		t.Warnings += fc.Warnings
	}
	return t
}

// Files returns the file names in c in sorted order.
func (c Counts) Files() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasErrors reports whether any diagnostic in diags is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
