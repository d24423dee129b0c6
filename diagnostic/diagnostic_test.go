// Copyright © 2024 The runcoliru authors

package diagnostic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	diags := []Diagnostic{
		{File: "a.cpp", Line: 1, Severity: SeverityError},
		{File: "a.cpp", Line: 2, Severity: SeverityWarning},
		{File: "a.cpp", Line: 3, Severity: SeverityError},
	}
	counts := Summarize(diags)
	assert.Equal(t, Counts{"a.cpp": {Errors: 2, Warnings: 1}}, counts)
	_, ok := counts["b.cpp"]
	assert.False(t, ok, "files without diagnostics must not get an entry")
	assert.Equal(t, FileCounts{Errors: 2, Warnings: 1}, counts.Total())
}

func TestSummarizeFresh(t *testing.T) {
	first := Summarize([]Diagnostic{{File: "a.cpp", Severity: SeverityError}})
	second := Summarize([]Diagnostic{{File: "b.cpp", Severity: SeverityWarning}})
	assert.Equal(t, Counts{"a.cpp": {Errors: 1}}, first)
	assert.Equal(t, Counts{"b.cpp": {Warnings: 1}}, second)
	assert.Empty(t, Summarize(nil))
}

func TestSummarizeSkipsNotes(t *testing.T) {
	counts := Summarize([]Diagnostic{{File: "a.cpp", Severity: SeverityNote}})
	assert.Empty(t, counts)
}

func TestSeverityJSON(t *testing.T) {
	d := Diagnostic{File: "a.cpp", Line: 3, StartColumn: 5, EndColumn: 6, Severity: SeverityWarning, Message: "m"}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":"a.cpp","line":3,"startColumn":5,"endColumn":6,"severity":"warning","message":"m"}`, string(b))

	var back Diagnostic
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back)

	var s Severity
	assert.Error(t, json.Unmarshal([]byte(`"fatal"`), &s))
}

func TestPlaceholder(t *testing.T) {
	assert.True(t, Diagnostic{StartColumn: 4, EndColumn: 4}.Placeholder())
	assert.False(t, Diagnostic{StartColumn: 4, EndColumn: 5}.Placeholder())
}

func TestHasErrors(t *testing.T) {
	assert.False(t, HasErrors([]Diagnostic{{Severity: SeverityWarning}}))
	assert.True(t, HasErrors([]Diagnostic{{Severity: SeverityWarning}, {Severity: SeverityError}}))
}

func TestParseColorMode(t *testing.T) {
	assert.Equal(t, ColorAlways, ParseColorMode("always"))
	assert.Equal(t, ColorNever, ParseColorMode("never"))
	assert.Equal(t, ColorAuto, ParseColorMode("auto"))
	assert.Equal(t, ColorAuto, ParseColorMode("bogus"))
}
