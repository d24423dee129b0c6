// Copyright © 2024 The runcoliru authors

// Package export writes a playground's files as a standalone project
// archive with a Makefile that builds them locally.
package export

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/luthersystems/runcoliru/source"
)

// DefaultArchiveName is the file name suggested for exported archives.
const DefaultArchiveName = "coliru_project.zip"

// MakefileName is the name of the generated build file in the archive.
const MakefileName = "Makefile"

var (
	flagsRegexp  = regexp.MustCompile(`(?:g\+\+|gcc)\s+((?:-\w+(?:=\S+)?\s*)+)`)
	sourceSuffix = regexp.MustCompile(`\.(cpp|c)$`)
)

// Flags extracts the compiler flags that follow the first g++ or gcc in
// template.
func Flags(template string) string {
	m := flagsRegexp.FindStringSubmatch(template)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Makefile returns a Makefile that compiles the C and C++ sources in files
// into a program called main.
func Makefile(files []source.File, template string) string {
	var srcs, objs []string
	compiler := "gcc"
	for _, f := range files {
		if !source.IsSource(f.Name) {
			continue
		}
		srcs = append(srcs, f.Name)
		objs = append(objs, sourceSuffix.ReplaceAllString(f.Name, ".o"))
		if source.IsCompiled(f.Name) {
			compiler = "g++"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CC = %s\n", compiler)
	fmt.Fprintf(&b, "CFLAGS = %s\n", Flags(template))
	b.WriteString("TARGET = main\n\n")
	fmt.Fprintf(&b, "SRCS = %s\n", strings.Join(srcs, " "))
	fmt.Fprintf(&b, "OBJS = %s\n\n", strings.Join(objs, " "))
	b.WriteString("$(TARGET): $(OBJS)\n\t$(CC) $(CFLAGS) -o $(TARGET) $(OBJS)\n\n")
	b.WriteString("%.o: %.cpp\n\t$(CC) $(CFLAGS) -c $< -o $@\n\n")
	b.WriteString("%.o: %.c\n\t$(CC) $(CFLAGS) -c $< -o $@\n\n")
	b.WriteString("clean:\n\trm -f $(OBJS) $(TARGET)")
	return b.String()
}

// WriteZip writes files and a generated Makefile to w as a zip archive.
// A file named Makefile in files is written as-is instead of the
// generated one.
func WriteZip(w io.Writer, files []source.File, template string) error {
	zw := zip.NewWriter(w)
	hasMakefile := false
	for _, f := range files {
		if f.Name == MakefileName {
			hasMakefile = true
		}
		if err := writeEntry(zw, f.Name, f.Content); err != nil {
			return err
		}
	}
	if !hasMakefile {
		if err := writeEntry(zw, MakefileName, Makefile(files, template)); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeEntry(zw *zip.Writer, name, content string) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("zip %s: %w", name, err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		return fmt.Errorf("zip %s: %w", name, err)
	}
	return nil
}
