// Copyright © 2024 The runcoliru authors

package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/luthersystems/runcoliru/diagnostic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFunctionContextAndCaret(t *testing.T) {
	raw := strings.Join([]string{
		"foo.cpp: In function 'int main()':",
		"foo.cpp:3:5: error: 'x' was not declared in this scope",
		"    x = 1;",
		"    ^",
		"foo.cpp:4:10: warning: unused variable 'y'",
	}, "\n")

	want := []diagnostic.Diagnostic{
		{
			File: "foo.cpp", Line: 3, StartColumn: 5, EndColumn: 6,
			Severity: diagnostic.SeverityError,
			Message:  "In function 'int main()': 'x' was not declared in this scope",
		},
		{
			File: "foo.cpp", Line: 4, StartColumn: 10, EndColumn: 10,
			Severity: diagnostic.SeverityWarning,
			Message:  "In function 'int main()': unused variable 'y'",
		},
	}
	if diff := cmp.Diff(want, Parse(raw)); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBareFunctionLine(t *testing.T) {
	raw := "In function 'void f()':\nf.cpp:1:2: error: boom"
	diags := Parse(raw)
	require.Len(t, diags, 1)
	assert.Equal(t, "In function 'void f()': boom", diags[0].Message)
}

func TestParseMemberFunction(t *testing.T) {
	raw := "a.cpp: In member function 'void S::f()':\na.cpp:7:3: error: boom"
	diags := Parse(raw)
	require.Len(t, diags, 1)
	assert.Equal(t, "In function 'void S::f()': boom", diags[0].Message)
}

func TestParseFunctionPersistsUntilOverwritten(t *testing.T) {
	raw := strings.Join([]string{
		"a.cpp: In function 'void f()':",
		"a.cpp:1:1: error: one",
		"a.cpp:2:1: error: two",
		"a.cpp: In function 'void g()':",
		"a.cpp:5:1: error: three",
		"a.cpp: At global scope:",
		"a.cpp:9:1: warning: four",
	}, "\n")
	diags := Parse(raw)
	require.Len(t, diags, 4)
	assert.Equal(t, "In function 'void f()': one", diags[0].Message)
	assert.Equal(t, "In function 'void f()': two", diags[1].Message)
	assert.Equal(t, "In function 'void g()': three", diags[2].Message)
	assert.Equal(t, "four", diags[3].Message)
}

func TestParseFatalError(t *testing.T) {
	raw := "main.cpp:1:10: fatal error: missing.h: No such file or directory\ncompilation terminated."
	diags := Parse(raw)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.SeverityError, diags[0].Severity)
	assert.Equal(t, "missing.h: No such file or directory", diags[0].Message)
}

func TestParseUnterminatedPending(t *testing.T) {
	diags := Parse("main.cpp:12:7: error: expected ';' before '}' token")
	require.Len(t, diags, 1)
	assert.Equal(t, 12, diags[0].Line)
	assert.Equal(t, 7, diags[0].StartColumn)
	assert.Equal(t, 7, diags[0].EndColumn)
	assert.True(t, diags[0].Placeholder())
}

func TestParseCaretWithTildes(t *testing.T) {
	raw := "m.cpp:2:3: error: no match\n  foo + bar;\n  ^~~~~~"
	diags := Parse(raw)
	require.Len(t, diags, 1)
	assert.Equal(t, 3, diags[0].StartColumn)
	assert.Equal(t, 4, diags[0].EndColumn)
}

func TestParseCaretRun(t *testing.T) {
	raw := "m.cpp:2:3: error: bad\n  ab\n  ^^~"
	diags := Parse(raw)
	require.Len(t, diags, 1)
	assert.Equal(t, 3, diags[0].StartColumn)
	assert.Equal(t, 5, diags[0].EndColumn)
}

func TestParseModernGutter(t *testing.T) {
	raw := strings.Join([]string{
		"main.cpp: In function 'int main()':",
		"main.cpp:5:5: error: 'x' was not declared in this scope",
		"    5 |     x = 1;",
		"      |     ^",
		"main.cpp:1:1: warning: first column",
		"    1 | y",
		"      | ^~",
	}, "\n")
	diags := Parse(raw)
	require.Len(t, diags, 2)
	assert.Equal(t, 5, diags[0].StartColumn)
	assert.Equal(t, 6, diags[0].EndColumn)
	assert.Equal(t, 1, diags[1].StartColumn)
	assert.Equal(t, 2, diags[1].EndColumn)
}

func TestParseCaretConsumedOnce(t *testing.T) {
	raw := strings.Join([]string{
		"a.cpp:1:5: error: first",
		"    ^",
		"    ^~~~",
	}, "\n")
	diags := Parse(raw)
	require.Len(t, diags, 1)
	assert.Equal(t, 6, diags[0].EndColumn)
}

func TestParseCaretWithoutPending(t *testing.T) {
	assert.Empty(t, Parse("    ^~~~\n      ^"))
}

func TestParseNotesAreSkipped(t *testing.T) {
	raw := strings.Join([]string{
		"a.cpp:3:5: error: redefinition of 'int x'",
		"    3 | int x;",
		"      |     ^",
		"a.cpp:2:5: note: 'int x' previously declared here",
		"    2 | int x;",
		"      |     ^",
	}, "\n")
	diags := Parse(raw)
	require.Len(t, diags, 1)
	assert.Equal(t, 3, diags[0].Line)
}

func TestParseOrdering(t *testing.T) {
	raw := strings.Join([]string{
		"b.cpp:9:1: warning: w1",
		"a.cpp:1:1: error: e1",
		"  ^",
		"b.cpp:2:1: error: e2",
	}, "\n")
	diags := Parse(raw)
	require.Len(t, diags, 3)
	assert.Equal(t, []string{"w1", "e1", "e2"}, []string{diags[0].Message, diags[1].Message, diags[2].Message})
}

func TestParseIgnoresChatter(t *testing.T) {
	raw := strings.Join([]string{
		"In file included from main.cpp:1:",
		"/usr/local/include/c++/13.2.0/iostream:39: some context",
		"/usr/bin/ld: /tmp/ccX.o: in function `main':",
		"main.cpp:(.text+0x5): undefined reference to `foo()'",
		"collect2: error: ld returned 1 exit status",
		"Hello from GCC 13.2.0 !",
		"Returned: 0",
		"",
	}, "\n")
	assert.Empty(t, Parse(raw))
}

func TestParseFileLine(t *testing.T) {
	var s scanState
	s.scan("main.cpp:")
	assert.Equal(t, "main.cpp", s.currentFile)
	s.scan("util.h: In function 'int g()':")
	assert.Equal(t, "util.h", s.currentFile)
	assert.Equal(t, "int g()", s.currentFunction)
	assert.Empty(t, s.finish())
}

func TestParseCRLF(t *testing.T) {
	raw := "a.cpp:1:5: error: crlf\r\n    ^\r\n"
	diags := Parse(raw)
	require.Len(t, diags, 1)
	assert.Equal(t, "crlf", diags[0].Message)
	assert.Equal(t, 6, diags[0].EndColumn)
}

func TestParseHugeNumbers(t *testing.T) {
	diags := Parse("a.cpp:99999999999999999999999:1: error: overflow")
	assert.Empty(t, diags)
}

func TestParseIdempotent(t *testing.T) {
	raw := "x.cpp: In function 'int main()':\nx.cpp:3:5: error: e\n    ^\nx.cpp:4:1: warning: w"
	first := Parse(raw)
	second := Parse(raw)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Parse is not idempotent (-first +second):\n%s", diff)
	}
	// A trailing function line in one call must not leak into the next.
	Parse("y.cpp: In function 'void leak()':")
	third := Parse("z.cpp:1:1: error: fresh")
	require.Len(t, third, 1)
	assert.Equal(t, "fresh", third[0].Message)
}

func TestParseReader(t *testing.T) {
	diags, err := ParseReader(strings.NewReader("a.cpp:1:1: warning: w"))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.SeverityWarning, diags[0].Severity)
}

func TestCaretRange(t *testing.T) {
	tests := []struct {
		line       string
		start, end int
		ok         bool
	}{
		{"    ^", 5, 6, true},
		{"^", 1, 2, true},
		{"  ^^^~~  ", 3, 6, true},
		{"      |   ^~~", 3, 4, true},
		{"      |", 0, 0, false},
		{"    ~~~^~~", 0, 0, false},
		{"    x = 1;", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		start, end, ok := caretRange(tt.line)
		assert.Equal(t, tt.ok, ok, "%q", tt.line)
		assert.Equal(t, tt.start, start, "%q", tt.line)
		assert.Equal(t, tt.end, end, "%q", tt.line)
	}
}
