// Copyright © 2024 The runcoliru authors

package lint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/luthersystems/runcoliru/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTemplate = "g++ -std=c++20 -O2 -Wall -pedantic -pthread ${cppFiles} && ./a.out; echo Returned: $?"

// lintRequest runs all default analyzers on req and returns diagnostics.
func lintRequest(t *testing.T, req Request) []Diagnostic {
	t.Helper()
	l := &Linter{Analyzers: DefaultAnalyzers()}
	diags, err := l.Lint(req)
	require.NoError(t, err)
	return diags
}

// lintCheck runs a single analyzer on req.
func lintCheck(t *testing.T, analyzer *Analyzer, req Request) []Diagnostic {
	t.Helper()
	l := &Linter{Analyzers: []*Analyzer{analyzer}}
	diags, err := l.Lint(req)
	require.NoError(t, err)
	return diags
}

// assertHasDiag checks that at least one diagnostic contains the given substring.
func assertHasDiag(t *testing.T, diags []Diagnostic, substr string) {
	t.Helper()
	for _, d := range diags {
		if strings.Contains(d.Message, substr) {
			return
		}
	}
	var msgs []string
	for _, d := range diags {
		msgs = append(msgs, d.String())
	}
	t.Errorf("expected diagnostic containing %q, got: %v", substr, msgs)
}

// assertNoDiags checks that there are no diagnostics.
func assertNoDiags(t *testing.T, diags []Diagnostic) {
	t.Helper()
	if len(diags) > 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.String())
		}
		t.Errorf("expected no diagnostics, got %d: %v", len(diags), msgs)
	}
}

func files(namesAndContents ...string) []source.File {
	var out []source.File
	for i := 0; i+1 < len(namesAndContents); i += 2 {
		out = append(out, source.File{Name: namesAndContents[i], Content: namesAndContents[i+1]})
	}
	return out
}

func TestCleanPlayground(t *testing.T) {
	diags := lintRequest(t, Request{
		Files:    files("main.cpp", "int main() {}", "util.hpp", "#pragma once"),
		Template: defaultTemplate,
	})
	assertNoDiags(t, diags)
}

func TestEmptyTemplate(t *testing.T) {
	diags := lintCheck(t, AnalyzerEmptyTemplate, Request{Files: files("main.cpp", "x"), Template: "  \n"})
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityError, diags[0].Severity)
	assert.Equal(t, TemplateFile, diags[0].Pos.File)
	assert.Equal(t, "empty-template", diags[0].Analyzer)
	require.Len(t, diags[0].Notes, 1)
	assert.Contains(t, diags[0].Notes[0], "${cppFiles}")

	assertNoDiags(t, lintCheck(t, AnalyzerEmptyTemplate, Request{Template: "true"}))
}

func TestDuplicateName(t *testing.T) {
	diags := lintCheck(t, AnalyzerDuplicateName, Request{
		Files: files("a.cpp", "1", "b.cpp", "2", "a.cpp", "3", "a.cpp", "4"),
	})
	require.Len(t, diags, 1, "reported once per name")
	assert.Equal(t, "a.cpp", diags[0].Pos.File)
	assert.Equal(t, 1, diags[0].Pos.Line)
	assertHasDiag(t, diags, `duplicate file name "a.cpp"`)
}

func TestInvalidName(t *testing.T) {
	diags := lintCheck(t, AnalyzerInvalidName, Request{
		Files: files("main.cpp", "", "README.md", "", "my file.c", "", ".h", ""),
	})
	require.Len(t, diags, 3)
	assertHasDiag(t, diags, `"README.md"`)
	assertHasDiag(t, diags, `"my file.c"`)
	assertHasDiag(t, diags, `".h"`)
	for _, d := range diags {
		assert.Equal(t, SeverityWarning, d.Severity)
	}
}

func TestMissingPlaceholder(t *testing.T) {
	diags := lintCheck(t, AnalyzerMissingPlaceholder, Request{
		Files:    files("main.cpp", "int main() {}"),
		Template: "g++ main.cpp && ./a.out",
	})
	require.Len(t, diags, 1)
	assertHasDiag(t, diags, "does not contain ${cppFiles}")

	// Nothing to substitute, nothing lost.
	assertNoDiags(t, lintCheck(t, AnalyzerMissingPlaceholder, Request{
		Files:    files("main.c", "int main() {}"),
		Template: "gcc main.c",
	}))
	assertNoDiags(t, lintCheck(t, AnalyzerMissingPlaceholder, Request{
		Files:    files("main.cpp", ""),
		Template: defaultTemplate,
	}))
}

func TestNoCompiledSources(t *testing.T) {
	diags := lintCheck(t, AnalyzerNoCompiledSources, Request{
		Files:    files("main.c", "int main() {}", "x.h", ""),
		Template: defaultTemplate,
	})
	require.Len(t, diags, 1)
	assertHasDiag(t, diags, "expands to nothing")
	require.Len(t, diags[0].Notes, 1)
	assert.Contains(t, diags[0].Notes[0], "gcc main.c")

	diags = lintCheck(t, AnalyzerNoCompiledSources, Request{
		Files:    files("x.hpp", ""),
		Template: defaultTemplate,
	})
	require.Len(t, diags, 1)
	assert.Empty(t, diags[0].Notes)

	assertNoDiags(t, lintCheck(t, AnalyzerNoCompiledSources, Request{
		Files:    files("x.h", ""),
		Template: "echo hi",
	}))
}

func TestEmptyFile(t *testing.T) {
	diags := lintCheck(t, AnalyzerEmptyFile, Request{
		Files: files("main.cpp", "int main() {}", "a.h", "", "b.h", " \n\t\n"),
	})
	require.Len(t, diags, 2)
	assert.Equal(t, SeverityInfo, diags[0].Severity)
	assert.Equal(t, "a.h", diags[0].Pos.File)
	assert.Equal(t, "b.h", diags[1].Pos.File)
}

func TestSortedByFile(t *testing.T) {
	diags := lintRequest(t, Request{
		Files:    files("z.h", "", "a.h", "", "main.c", "int main(){}"),
		Template: defaultTemplate,
	})
	var got []string
	for _, d := range diags {
		got = append(got, d.Pos.File+"/"+d.Analyzer)
	}
	assert.Equal(t, []string{"<args>/no-compiled-sources", "a.h/empty-file", "z.h/empty-file"}, got)
}

func TestNolint(t *testing.T) {
	req := Request{
		Files: files(
			"a.txt", "// nolint\n",
			"b.txt", "/* nolint:invalid-name */",
			"c.txt", "// nolint:empty-file",
			"d.txt", "",
			"e.txt", "int x; // nolint",
		),
		Template: "true",
	}
	var got []string
	for _, d := range lintRequest(t, req) {
		got = append(got, d.Pos.File+"/"+d.Analyzer)
	}
	assert.Equal(t, []string{
		"c.txt/invalid-name",
		"d.txt/invalid-name",
		"d.txt/empty-file",
		"e.txt/invalid-name",
	}, got)
}

func TestNolintDirective(t *testing.T) {
	tests := []struct {
		content string
		want    string
		ok      bool
	}{
		{"// nolint", "", true},
		{"//nolint:a,b\nint x;", "a,b", true},
		{"/* nolint:empty-file */", "empty-file", true},
		{"// nolintx", "", false},
		{"int x; // nolint", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := nolintDirective(tt.content)
		assert.Equal(t, tt.ok, ok, "%q", tt.content)
		assert.Equal(t, tt.want, got, "%q", tt.content)
	}
}

func TestAnalyzerError(t *testing.T) {
	boom := &Analyzer{
		Name: "boom",
		Run:  func(*Pass) error { return errors.New("exploded") },
	}
	_, err := (&Linter{Analyzers: []*Analyzer{boom}}).Lint(Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyzer boom: exploded")
}

func TestDefaultSeverity(t *testing.T) {
	a := &Analyzer{
		Name: "custom",
		Run: func(pass *Pass) error {
			pass.Reportf("x.cpp", "found %d", 1)
			return nil
		},
	}
	diags := lintCheck(t, a, Request{})
	require.Len(t, diags, 1)
	b, err := json.Marshal(diags[0].Severity)
	require.NoError(t, err)
	assert.Equal(t, `"warning"`, string(b))
}

func TestSeverityJSON(t *testing.T) {
	for _, s := range []Severity{SeverityError, SeverityWarning, SeverityInfo} {
		b, err := json.Marshal(s)
		require.NoError(t, err)
		var got Severity
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, s, got)
	}
	var s Severity
	assert.Error(t, json.Unmarshal([]byte(`"fatal"`), &s))
}

func TestFormat(t *testing.T) {
	diags := []Diagnostic{{
		Pos:      Position{File: "a.h", Line: 1},
		Message:  "file \"a.h\" is empty",
		Analyzer: "empty-file",
		Severity: SeverityInfo,
		Notes:    []string{"delete it"},
	}}

	var text bytes.Buffer
	FormatText(&text, diags)
	assert.Equal(t, "a.h:1: file \"a.h\" is empty (empty-file)\n  = note: delete it\n", text.String())

	var js bytes.Buffer
	require.NoError(t, FormatJSON(&js, diags))
	var decoded []Diagnostic
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, diags, decoded)
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "<args>", Position{File: TemplateFile}.String())
	assert.Equal(t, "a.c:3", Position{File: "a.c", Line: 3}.String())
	assert.Equal(t, "a.c:3:7", Position{File: "a.c", Line: 3, Col: 7}.String())
}

func TestSelectAnalyzers(t *testing.T) {
	sel, err := SelectAnalyzers(DefaultAnalyzers(), "empty-file, duplicate-name,")
	require.NoError(t, err)
	assert.Equal(t, []string{"empty-file", "duplicate-name"}, AnalyzerNames(sel))

	_, err = SelectAnalyzers(DefaultAnalyzers(), "nope")
	assert.EqualError(t, err, "unknown check: nope")
}

func TestAnalyzerDocs(t *testing.T) {
	seen := make(map[string]bool)
	for _, a := range DefaultAnalyzers() {
		assert.False(t, seen[a.Name], "duplicate analyzer %s", a.Name)
		seen[a.Name] = true
		doc := AnalyzerDoc(a)
		assert.NotEmpty(t, doc, a.Name)
		assert.NotContains(t, doc, "\n")
		assert.NotEqual(t, severityUnset, a.Severity, fmt.Sprintf("%s has no severity", a.Name))
	}
	assert.True(t, HasErrors([]Diagnostic{{Severity: SeverityWarning}, {Severity: SeverityError}}))
	assert.False(t, HasErrors([]Diagnostic{{Severity: SeverityInfo}}))
}
