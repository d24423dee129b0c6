// Copyright © 2024 The runcoliru authors

// Package shellcmd builds the single shell command string sent to the remote
// compile service. The command first materializes every in-memory file on
// the remote host and then runs the user's argument template with the
// compiled sources substituted for Placeholder.
//
// Building a command never fails; the result is inert text until the remote
// service interprets it.
package shellcmd

import (
	"strings"

	"github.com/luthersystems/runcoliru/source"
)

// Placeholder is replaced in argument templates by the space-separated,
// individually quoted list of compiled source files.
const Placeholder = "${cppFiles}"

// Command is a fully resolved shell command.
type Command struct {
	// Text is the payload for the remote service.
	Text string

	// Compiled lists the unquoted names substituted for Placeholder, in
	// file order.
	Compiled []string
}

// String returns c.Text.
func (c Command) String() string {
	return c.Text
}

// Option configures Build.
type Option func(*config)

type config struct {
	quoteContent func(string) string
}

// WithANSIC quotes file contents using bash ANSI-C quoting ($'...') instead
// of POSIX single quotes. The remote host must run bash.
func WithANSIC() Option {
	return func(c *config) { c.quoteContent = QuoteANSIC }
}

// Build returns the command that writes files, in order, and then runs
// template. Every occurrence of Placeholder in template is replaced by the
// quoted names of files ending in source.CompiledExt; other files are
// written but not substituted. A template without the placeholder drops
// the compiled list silently.
func Build(files []source.File, template string, opts ...Option) Command {
	cfg := &config{quoteContent: Quote}
	for _, o := range opts {
		o(cfg)
	}

	var (
		parts    = make([]string, 0, len(files)+1)
		quoted   []string
		compiled []string
	)
	for _, f := range files {
		name := Quote(f.Name)
		parts = append(parts, writeFragment(name, cfg.quoteContent(f.Content)))
		if source.IsCompiled(f.Name) {
			quoted = append(quoted, name)
			compiled = append(compiled, f.Name)
		}
	}
	parts = append(parts, strings.ReplaceAll(template, Placeholder, strings.Join(quoted, " ")))

	return Command{
		Text:     strings.Join(parts, " && "),
		Compiled: compiled,
	}
}

// writeFragment returns a shell fragment that writes content to name.
// printf '%s' reproduces its argument byte for byte, unlike echo, which
// appends a newline and may interpret backslashes.
func writeFragment(quotedName, quotedContent string) string {
	return "printf '%s' " + quotedContent + " > " + quotedName
}

// Quote returns s as a single POSIX shell word. It wraps s in single quotes,
// which disable all expansion, and rewrites each embedded single quote as
// '\''.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteANSIC returns s as a bash ANSI-C quoted word ($'...'). Backslashes
// and single quotes are escaped; every other byte, newlines included, is
// kept literally.
func QuoteANSIC(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 3)
	b.WriteString("$'")
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '\'':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
