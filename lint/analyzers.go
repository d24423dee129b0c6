// Copyright © 2024 The runcoliru authors

package lint

import (
	"fmt"
	"strings"

	"github.com/luthersystems/runcoliru/shellcmd"
	"github.com/luthersystems/runcoliru/source"
)

// AnalyzerEmptyTemplate reports a blank command template. The service
// would write the files and then run nothing.
var AnalyzerEmptyTemplate = &Analyzer{
	Name:     "empty-template",
	Doc:      "Report a blank compile command template.\n\nThe files are written on the remote host and then nothing runs, so the output is always empty.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		if strings.TrimSpace(pass.Request.Template) == "" {
			pass.ReportWithNotes(Diagnostic{
				Pos:     Position{File: TemplateFile},
				Message: "compile command is empty",
			}, "the default is: g++ -std=c++20 -O2 -Wall -pedantic -pthread "+shellcmd.Placeholder+" && ./a.out")
		}
		return nil
	},
}

// AnalyzerDuplicateName reports two files with the same name. Only the last
// one written would survive on the remote host.
var AnalyzerDuplicateName = &Analyzer{
	Name:     "duplicate-name",
	Doc:      "Report files that share a name.\n\nA file's name is its identity. When two files share one, the later write overwrites the earlier on the remote host.",
	Severity: SeverityError,
	Run: func(pass *Pass) error {
		seen := make(map[string]int)
		for _, f := range pass.Request.Files {
			seen[f.Name]++
			if seen[f.Name] == 2 {
				pass.Reportf(f.Name, "duplicate file name %q", f.Name)
			}
		}
		return nil
	},
}

// AnalyzerInvalidName reports names a user could not have created. Gists
// and local files may bring in such names; they still compile but cannot
// be recreated in the editor.
var AnalyzerInvalidName = &Analyzer{
	Name:     "invalid-name",
	Doc:      "Report file names outside the accepted pattern.\n\nAccepted names are letters, digits, '_' and '-' in dot-separated parts, ending in .c, .h, .cpp or .hpp.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		for _, f := range pass.Request.Files {
			if !source.ValidName(f.Name) {
				pass.ReportWithNotes(Diagnostic{
					Pos:     Position{File: f.Name, Line: 1},
					Message: fmt.Sprintf("file name %q is not a valid source file name", f.Name),
				}, "allowed extensions: "+strings.Join(source.AllowedExts, " "))
			}
		}
		return nil
	},
}

// AnalyzerMissingPlaceholder reports a template that never references the
// compiled file list while .cpp files exist.
var AnalyzerMissingPlaceholder = &Analyzer{
	Name:     "missing-placeholder",
	Doc:      "Report a template without " + shellcmd.Placeholder + " when .cpp files exist.\n\nThe list of .cpp files is substituted for the placeholder. Without it the files are written but never passed to the compiler.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		tmpl := pass.Request.Template
		if strings.TrimSpace(tmpl) == "" || strings.Contains(tmpl, shellcmd.Placeholder) {
			return nil
		}
		for _, f := range pass.Request.Files {
			if source.IsCompiled(f.Name) {
				pass.Report(Diagnostic{
					Pos:     Position{File: TemplateFile},
					Message: "compile command does not contain " + shellcmd.Placeholder,
				})
				return nil
			}
		}
		return nil
	},
}

// AnalyzerNoCompiledSources reports a placeholder that would expand to
// nothing because no .cpp file exists.
var AnalyzerNoCompiledSources = &Analyzer{
	Name:     "no-compiled-sources",
	Doc:      "Report a " + shellcmd.Placeholder + " placeholder with no .cpp files to fill it.\n\nOnly .cpp files are substituted. A C-only or header-only playground compiles nothing unless the template names its files.",
	Severity: SeverityWarning,
	Run: func(pass *Pass) error {
		if !strings.Contains(pass.Request.Template, shellcmd.Placeholder) {
			return nil
		}
		for _, f := range pass.Request.Files {
			if source.IsCompiled(f.Name) {
				return nil
			}
		}
		d := Diagnostic{
			Pos:     Position{File: TemplateFile},
			Message: shellcmd.Placeholder + " expands to nothing: there are no .cpp files",
		}
		for _, f := range pass.Request.Files {
			if strings.HasSuffix(f.Name, ".c") {
				pass.ReportWithNotes(d, "name C files in the template explicitly, e.g. gcc "+f.Name)
				return nil
			}
		}
		pass.Report(d)
		return nil
	},
}

// AnalyzerEmptyFile notes files with no content.
var AnalyzerEmptyFile = &Analyzer{
	Name:     "empty-file",
	Doc:      "Note files that contain only whitespace.",
	Severity: SeverityInfo,
	Run: func(pass *Pass) error {
		for _, f := range pass.Request.Files {
			if strings.TrimSpace(f.Content) == "" {
				pass.Reportf(f.Name, "file %q is empty", f.Name)
			}
		}
		return nil
	},
}
