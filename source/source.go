// Copyright © 2024 The runcoliru authors

// Package source defines the in-memory source files a playground session
// edits. A file's name is its identity: it is the path written on the
// remote host and the tab id in every user interface.
package source

import (
	"path"
	"regexp"
	"strings"
)

// File is a single named source file. The JSON form matches the persisted
// tab format, {"id": name, "content": text}.
type File struct {
	Name    string `json:"id"`
	Content string `json:"content"`
}

// CompiledExt is the extension of files passed to the compiler through the
// argument template placeholder.
const CompiledExt = ".cpp"

// AllowedExts lists the extensions a user may create a file with.
var AllowedExts = []string{".c", ".h", ".cpp", ".hpp"}

var nameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_-]+(\.[a-zA-Z0-9_-]+)*$`)

// IsCompiled reports whether name is substituted into the compile command.
func IsCompiled(name string) bool {
	return strings.HasSuffix(name, CompiledExt)
}

// IsSource reports whether name is a C or C++ translation unit.
func IsSource(name string) bool {
	return strings.HasSuffix(name, ".cpp") || strings.HasSuffix(name, ".c")
}

// ValidName reports whether name is acceptable for a newly created file.
func ValidName(name string) bool {
	if !nameRegexp.MatchString(name) {
		return false
	}
	ext := path.Ext(name)
	for _, allowed := range AllowedExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Names returns the names of files in order.
func Names(files []File) []string {
	names := make([]string, len(files))
	for i := range files {
		names[i] = files[i].Name
	}
	return names
}

// Index returns the position of the file called name, or -1.
func Index(files []File, name string) int {
	for i := range files {
		if files[i].Name == name {
			return i
		}
	}
	return -1
}

// EntryPoint picks the file a user most likely wants to look at first:
// main.c or main.cpp, then any C/C++ file with "main" in its name, then the
// first file. It returns "" when files is empty.
func EntryPoint(files []File) string {
	if len(files) == 0 {
		return ""
	}
	for _, f := range files {
		lower := strings.ToLower(f.Name)
		if lower == "main.c" || lower == "main.cpp" {
			return f.Name
		}
	}
	for _, f := range files {
		lower := strings.ToLower(f.Name)
		if IsSource(lower) && strings.Contains(lower, "main") {
			return f.Name
		}
	}
	return files[0].Name
}

// Lookup returns a function suitable for diagnostic.Renderer.SourceReader
// that serves contents from files, falling back to the base name so that
// compiler paths such as "./main.cpp" still resolve.
func Lookup(files []File) func(string) ([]byte, error) {
	return func(name string) ([]byte, error) {
		if i := Index(files, name); i >= 0 {
			return []byte(files[i].Content), nil
		}
		if i := Index(files, path.Base(name)); i >= 0 {
			return []byte(files[i].Content), nil
		}
		return nil, &NotFoundError{Name: name}
	}
}

// NotFoundError is returned by Lookup for names that are not in the set.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "source file not found: " + e.Name
}
