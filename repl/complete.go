// Copyright © 2024 The runcoliru authors

package repl

import (
	"sort"
	"strings"

	"github.com/luthersystems/runcoliru/session"
)

// commandCompleter implements readline.AutoCompleter by completing command
// names and, for commands that take one, file names from the session.
type commandCompleter struct {
	sess *session.Session
}

func (c *commandCompleter) Do(line []rune, pos int) ([][]rune, int) {
	// Extract the word being typed (backwards from cursor to whitespace).
	start := pos
	for start > 0 {
		ch := line[start-1]
		if ch == ' ' || ch == '\t' {
			break
		}
		start--
	}
	prefix := string(line[start:pos])

	var candidates []string
	if start == 0 {
		if !strings.HasPrefix(prefix, ":") {
			return nil, 0
		}
		candidates = c.commandNames(strings.TrimPrefix(prefix, ":"))
		for i := range candidates {
			candidates[i] = ":" + candidates[i]
		}
	} else {
		candidates = c.fileNames(string(line[:start]), prefix)
	}
	if len(candidates) == 0 {
		return nil, 0
	}

	// Build completions: each entry is the suffix to append.
	result := make([][]rune, 0, len(candidates))
	for _, cand := range candidates {
		result = append(result, []rune(cand[len(prefix):]))
	}
	return result, len([]rune(prefix))
}

func (c *commandCompleter) commandNames(prefix string) []string {
	var result []string
	for _, cmd := range commands {
		if strings.HasPrefix(cmd.name, prefix) {
			result = append(result, cmd.name)
		}
	}
	sort.Strings(result)
	return result
}

// fileNames completes the first argument of commands that take a file name.
func (c *commandCompleter) fileNames(head, prefix string) []string {
	fields := strings.Fields(head)
	if len(fields) != 1 {
		return nil
	}
	cmd := lookupCommand(strings.TrimPrefix(fields[0], ":"))
	if cmd == nil || !cmd.names || c.sess == nil {
		return nil
	}
	var result []string
	for _, f := range c.sess.Files() {
		if strings.HasPrefix(f.Name, prefix) {
			result = append(result, f.Name)
		}
	}
	sort.Strings(result)
	return result
}
