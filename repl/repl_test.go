// Copyright © 2024 The runcoliru authors

package repl

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/luthersystems/runcoliru/diagnostic"
	"github.com/luthersystems/runcoliru/session"
	"github.com/luthersystems/runcoliru/source"
	"github.com/luthersystems/runcoliru/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompiler struct {
	out string
	err error
}

func (f *fakeCompiler) Compile(context.Context, string) (string, error) {
	return f.out, f.err
}

type fakeGists map[string][]source.File

func (g fakeGists) Load(_ context.Context, id string) ([]source.File, error) {
	files, ok := g[id]
	if !ok {
		return nil, errors.New("gist not found")
	}
	return files, nil
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
}

// script runs lines through a shell and returns its output. Lines after a
// command that reads more input are consumed by that command.
func script(t *testing.T, cfg *config, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	sh := newShell(cfg, &out)
	next := func() (string, error) {
		if len(lines) == 0 {
			return "", io.EOF
		}
		l := lines[0]
		lines = lines[1:]
		return l, nil
	}
	for {
		line, err := next()
		if err != nil {
			break
		}
		if sh.handle(context.Background(), line, next) {
			break
		}
	}
	return out.String()
}

func testConfig(opts ...Option) *config {
	opts = append([]Option{
		WithSession(session.New(session.WithClock(fixedClock))),
		WithColor(diagnostic.ColorNever),
		WithHistoryFile(""),
	}, opts...)
	return newConfig(opts...)
}

func TestOpenEditShow(t *testing.T) {
	cfg := testConfig()
	out := script(t, cfg,
		":open util.hpp",
		":edit",
		"#pragma once",
		"  int twice(int x);",
		".",
		":show",
		":files",
	)
	f, ok := cfg.sess.File("util.hpp")
	require.True(t, ok)
	assert.Equal(t, "#pragma once\n  int twice(int x);\n", f.Content)
	assert.Equal(t, "util.hpp", cfg.sess.Active())
	assert.Contains(t, out, "   1 | #pragma once\n   2 |   int twice(int x);\n")
	assert.Contains(t, out, "  0 main.cpp\n* 1 util.hpp\n")
}

func TestEditNamedFileAndUnterminated(t *testing.T) {
	cfg := testConfig()
	out := script(t, cfg, ":edit extra.c", "int x;", ".")
	f, ok := cfg.sess.File("extra.c")
	require.True(t, ok)
	assert.Equal(t, "int x;\n", f.Content)
	assert.Contains(t, out, `editing extra.c; end with a line "."`)

	out = script(t, cfg, ":edit main.cpp", "lost")
	assert.Contains(t, out, "input ended before")
	f, _ = cfg.sess.File("main.cpp")
	assert.Equal(t, session.DefaultProgram, f.Content)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "helper.cpp")
	require.NoError(t, os.WriteFile(path, []byte("int helper() { return 1; }\n"), 0600))

	cfg := testConfig()
	out := script(t, cfg, ":load "+path, ":load "+path+" renamed.cpp", ":load "+path+" notes.txt", ":load")
	assert.Equal(t, []string{"main.cpp", "helper.cpp", "renamed.cpp", "notes.txt"}, source.Names(cfg.sess.Files()))
	assert.Equal(t, "notes.txt", cfg.sess.Active())
	assert.Contains(t, out, `warning: "notes.txt" is not a C/C++ file name`)
	assert.Contains(t, out, "usage: :load <path> [name]")

	out = script(t, cfg, ":load "+filepath.Join(dir, "missing.cpp"))
	assert.Contains(t, out, "error: ")
}

func TestCloseMove(t *testing.T) {
	cfg := testConfig()
	out := script(t, cfg,
		":open a.cpp",
		":open b.cpp",
		":move b.cpp 0",
		":close a.cpp",
		":close nope.cpp",
		":move b.cpp x",
	)
	assert.Equal(t, []string{"b.cpp", "main.cpp"}, source.Names(cfg.sess.Files()))
	assert.Contains(t, out, "error: file not found: nope.cpp")
	assert.Contains(t, out, "usage: :move <name> <index>")

	out = script(t, cfg, ":close b.cpp", ":close main.cpp")
	assert.Contains(t, out, session.ErrLastFile.Error())
}

func TestArgs(t *testing.T) {
	cfg := testConfig()
	out := script(t, cfg, ":args", ":args gcc -O2 ${cppFiles}", ":args")
	assert.Contains(t, out, session.DefaultTemplate+"\n")
	assert.Equal(t, "gcc -O2 ${cppFiles}", cfg.sess.Template())
	assert.True(t, strings.HasSuffix(out, "gcc -O2 ${cppFiles}\n"))
}

func TestCompileRendersDiagnostics(t *testing.T) {
	output := "main.cpp:1:1: error: expected unqualified-id\nReturned: 1\n"
	cfg := testConfig(WithCompiler(&fakeCompiler{out: output}))
	out := script(t, cfg, ":compile", ":files")
	assert.True(t, strings.HasPrefix(out, output))
	assert.Contains(t, out, "expected unqualified-id")
	assert.Contains(t, out, "main.cpp: 1 error, 0 warnings")
	assert.Contains(t, out, "* 0 main.cpp  (1 errors, 0 warnings)")
}

func TestFilesCountsRelativePaths(t *testing.T) {
	output := "./main.cpp:1:1: warning: unused\nReturned: 0\n"
	cfg := testConfig(WithCompiler(&fakeCompiler{out: output}))
	out := script(t, cfg, ":compile", ":files")
	assert.Contains(t, out, "* 0 main.cpp  (0 errors, 1 warnings)")
}

func TestCompileFailure(t *testing.T) {
	cfg := testConfig(WithCompiler(&fakeCompiler{err: errors.New("connection refused")}))
	out := script(t, cfg, ":compile")
	assert.Contains(t, out, session.FailurePrefix+" connection refused")

	out = script(t, testConfig(), ":compile")
	assert.Contains(t, out, "error: no compiler configured")
}

func TestHistory(t *testing.T) {
	long := strings.Repeat("word ", 30)
	cfg := testConfig(WithCompiler(&fakeCompiler{out: long}), WithWidth(40))
	out := script(t, cfg, ":history", ":compile", ":history")
	assert.Contains(t, out, "no history")
	assert.Contains(t, out, "[2024-03-01 12:30:00]\n")
	for _, line := range strings.Split(out[strings.Index(out, "[2024"):], "\n") {
		assert.LessOrEqual(t, len(line), 40, line)
	}
	assert.Contains(t, out, "\n  word word")

	script(t, cfg, ":clear")
	assert.Empty(t, cfg.sess.History())
	assert.Empty(t, cfg.sess.Output())
}

func TestGistAndSave(t *testing.T) {
	const id = "aa5a315d61ae9438b18d"
	st := store.NewMemory()
	gists := fakeGists{id: {
		{Name: "lib.h", Content: "#pragma once\n"},
		{Name: "main.c", Content: "int main(void) { return 0; }\n"},
	}}
	cfg := testConfig(WithGistLoader(gists), WithStore(st))
	out := script(t, cfg, ":gist https://gist.github.com/someone/"+id)
	assert.Contains(t, out, "loaded lib.h main.c")
	assert.Equal(t, "main.c", cfg.sess.Active())

	restored := session.New()
	ok, err := restored.Load(context.Background(), st)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"lib.h", "main.c"}, source.Names(restored.Files()))

	out = script(t, cfg, ":gist not-a-gist")
	assert.Contains(t, out, "error: ")

	require.NoError(t, st.Delete(context.Background(), store.TabsKey))
	out = script(t, cfg, ":save")
	assert.Contains(t, out, "saved 2 files")

	out = script(t, testConfig(), ":save", ":gist "+id)
	assert.Contains(t, out, "error: no store configured")
	assert.Contains(t, out, "error: no gist loader configured")
}

func TestZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.zip")
	cfg := testConfig()
	out := script(t, cfg, ":zip "+path)
	assert.Contains(t, out, "wrote "+path)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close() //nolint:errcheck // test cleanup
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"main.cpp", "Makefile"}, names)
}

func TestHelpAndUnknown(t *testing.T) {
	out := script(t, testConfig(), ":help", ":nope", "int x;", ":quit", ":files")
	assert.Contains(t, out, ":edit [name]")
	assert.Contains(t, out, "unknown command :nope")
	assert.Contains(t, out, `not a command: "int x;"`)
	assert.NotContains(t, out, "main.cpp\n", ":files after :quit is not run")
}

func runReplWithString(t *testing.T, input string, opts ...Option) string {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		defer inW.Close() //nolint:errcheck // test cleanup
		_, _ = io.WriteString(inW, input)
	}()

	go func() {
		opts = append(opts, WithStdin(inR), WithStderr(outW), WithHistoryFile(""))
		_ = Run(context.Background(), "coliru> ", opts...)
		inR.Close()  //nolint:errcheck,gosec // test cleanup
		outW.Close() //nolint:errcheck,gosec // test cleanup
	}()

	var output bytes.Buffer
	_, _ = io.Copy(&output, outR)
	outR.Close() //nolint:errcheck,gosec // test cleanup
	return output.String()
}

func TestRun(t *testing.T) {
	got := runReplWithString(t, ":files\n:quit\n")
	assert.Contains(t, got, "active file: main.cpp")
	assert.Contains(t, got, "* 0 main.cpp")
}

func TestEnsureHistoryFilePermissions_CreatesWithRestrictedMode(t *testing.T) {
	dir := t.TempDir()
	histFile := filepath.Join(dir, ".runcoliru_history")

	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err, "history file should be created")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "new history file should have mode 0600")
}

func TestEnsureHistoryFilePermissions_RestrictsExistingFile(t *testing.T) {
	dir := t.TempDir()
	histFile := filepath.Join(dir, ".runcoliru_history")

	err := os.WriteFile(histFile, []byte("some history"), 0644)
	require.NoError(t, err)

	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "existing history file should be restricted to 0600")

	data, err := os.ReadFile(histFile)
	require.NoError(t, err)
	assert.Equal(t, "some history", string(data))
}

func TestEnsureHistoryFilePermissions_EmptyPathNoOp(t *testing.T) {
	ensureHistoryFilePermissions("")
}
