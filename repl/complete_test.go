// Copyright © 2024 The runcoliru authors

package repl

import (
	"testing"

	"github.com/luthersystems/runcoliru/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completions(c *commandCompleter, line string) ([]string, int) {
	cands, offset := c.Do([]rune(line), len([]rune(line)))
	var out []string
	for _, r := range cands {
		out = append(out, string(r))
	}
	return out, offset
}

func TestCommandCompleter(t *testing.T) {
	sess := session.New()
	require.NoError(t, sess.Create("util.hpp"))
	require.NoError(t, sess.Create("main_test.cpp"))
	c := &commandCompleter{sess: sess}

	got, offset := completions(c, ":c")
	assert.Equal(t, []string{"lear", "lose", "ompile"}, got)
	assert.Equal(t, 2, offset)

	got, offset = completions(c, ":show ma")
	assert.Equal(t, []string{"in.cpp", "in_test.cpp"}, got)
	assert.Equal(t, 2, offset)

	got, _ = completions(c, ":show ")
	assert.Len(t, got, 3)

	// Commands without a file argument, later arguments and plain text
	// complete to nothing.
	got, _ = completions(c, ":load ma")
	assert.Empty(t, got)
	got, _ = completions(c, ":move main.cpp ma")
	assert.Empty(t, got)
	got, _ = completions(c, "hel")
	assert.Empty(t, got)
}
