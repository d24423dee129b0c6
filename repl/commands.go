// Copyright © 2024 The runcoliru authors

package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/luthersystems/runcoliru/diagnostic"
	"github.com/luthersystems/runcoliru/export"
	"github.com/luthersystems/runcoliru/session"
	"github.com/luthersystems/runcoliru/source"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"go.uber.org/zap"
)

// editTerminator ends :edit input.
const editTerminator = "."

var errUsage = errors.New("usage")

// command is one shell command.
type command struct {
	name  string
	args  string
	help  string
	run   func(sh *shell, ctx context.Context, args []string, rest string, next lineReader) error
	names bool // arguments complete to file names
}

// lineReader returns the next input line, or io.EOF.
type lineReader func() (string, error)

var commands []*command

func init() {
	commands = []*command{
		{name: "files", help: "list the files; * marks the active one", run: (*shell).files},
		{name: "open", args: "<name>", help: "switch to a file, creating it if needed", run: (*shell).open, names: true},
		{name: "load", args: "<path> [name]", help: "read a local file into a tab", run: (*shell).load},
		{name: "edit", args: "[name]", help: "replace a file's content; end input with a line \".\"", run: (*shell).edit, names: true},
		{name: "show", args: "[name]", help: "print a file with line numbers", run: (*shell).show, names: true},
		{name: "close", args: "<name>", help: "close a file", run: (*shell).close, names: true},
		{name: "move", args: "<name> <index>", help: "move a file to a tab position", run: (*shell).move, names: true},
		{name: "args", args: "[template]", help: "print or set the compile command", run: (*shell).args},
		{name: "compile", help: "compile and run the files", run: (*shell).compile},
		{name: "history", help: "print previous outputs, newest first", run: (*shell).history},
		{name: "clear", help: "clear the output history", run: (*shell).clear},
		{name: "gist", args: "<ref>", help: "load a GitHub gist by id or URL", run: (*shell).gist},
		{name: "zip", args: "<path>", help: "write the files and a Makefile to a zip archive", run: (*shell).zip},
		{name: "save", help: "store the files for the next session", run: (*shell).save},
		{name: "help", help: "show this help", run: (*shell).help},
		{name: "quit", help: "leave the shell"},
	}
}

func lookupCommand(name string) *command {
	for _, c := range commands {
		if c.name == name {
			return c
		}
	}
	return nil
}

// shell executes commands against a session.
type shell struct {
	cfg *config
	out io.Writer
}

func newShell(cfg *config, out io.Writer) *shell {
	return &shell{cfg: cfg, out: out}
}

func (sh *shell) printf(format string, a ...any) {
	fmt.Fprintf(sh.out, format, a...) //nolint:errcheck // best-effort REPL output
}

// handle runs one input line and reports whether the shell should exit.
func (sh *shell) handle(ctx context.Context, line string, next lineReader) bool {
	if !strings.HasPrefix(line, ":") {
		sh.printf("not a command: %q (type :help)\n", line)
		return false
	}
	name, rest, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	rest = strings.TrimSpace(rest)
	if name == "quit" || name == "q" {
		return true
	}
	cmd := lookupCommand(name)
	if cmd == nil {
		sh.printf("unknown command :%s (type :help)\n", name)
		return false
	}
	err := cmd.run(sh, ctx, strings.Fields(rest), rest, next)
	switch {
	case errors.Is(err, errUsage):
		sh.printf("usage: :%s %s\n", cmd.name, cmd.args)
	case err != nil:
		sh.cfg.logger.Debug("command failed", zap.String("command", cmd.name), zap.Error(err))
		sh.printf("error: %v\n", err)
	}
	return false
}

func (sh *shell) sess() *session.Session {
	return sh.cfg.sess
}

func (sh *shell) target(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return sh.sess().Active()
}

func (sh *shell) files(_ context.Context, _ []string, _ string, _ lineReader) error {
	counts := sh.sess().Counts()
	active := sh.sess().Active()
	for i, f := range sh.sess().Files() {
		mark := " "
		if f.Name == active {
			mark = "*"
		}
		suffix := ""
		if c, ok := counts[f.Name]; ok {
			suffix = fmt.Sprintf("  (%d errors, %d warnings)", c.Errors, c.Warnings)
		}
		sh.printf("%s %d %s%s\n", mark, i, f.Name, suffix)
	}
	return nil
}

func (sh *shell) open(_ context.Context, args []string, _ string, _ lineReader) error {
	if len(args) != 1 {
		return errUsage
	}
	if _, ok := sh.sess().File(args[0]); ok {
		return sh.sess().SetActive(args[0])
	}
	return sh.sess().Create(args[0])
}

func (sh *shell) load(_ context.Context, args []string, _ string, _ lineReader) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	name := filepath.Base(args[0])
	if len(args) == 2 {
		name = args[1]
	}
	if !source.ValidName(name) {
		sh.printf("warning: %q is not a C/C++ file name\n", name)
	}
	if err := sh.sess().Put(name, string(b)); err != nil {
		return err
	}
	return sh.sess().SetActive(name)
}

func (sh *shell) edit(_ context.Context, args []string, _ string, next lineReader) error {
	if len(args) > 1 {
		return errUsage
	}
	name := sh.target(args)
	sh.printf("editing %s; end with a line %q\n", name, editTerminator)
	var lines []string
	for {
		line, err := next()
		if err != nil {
			return fmt.Errorf("edit %s: input ended before %q", name, editTerminator)
		}
		if strings.TrimRight(line, "\r") == editTerminator {
			break
		}
		lines = append(lines, line)
	}
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := sh.sess().Put(name, content); err != nil {
		return err
	}
	return sh.sess().SetActive(name)
}

func (sh *shell) show(_ context.Context, args []string, _ string, _ lineReader) error {
	if len(args) > 1 {
		return errUsage
	}
	name := sh.target(args)
	f, ok := sh.sess().File(name)
	if !ok {
		return fmt.Errorf("%w: %s", session.ErrNotFound, name)
	}
	lines := strings.Split(strings.TrimSuffix(f.Content, "\n"), "\n")
	for i, l := range lines {
		sh.printf("%4d | %s\n", i+1, l)
	}
	return nil
}

func (sh *shell) close(_ context.Context, args []string, _ string, _ lineReader) error {
	if len(args) != 1 {
		return errUsage
	}
	return sh.sess().Close(args[0])
}

func (sh *shell) move(_ context.Context, args []string, _ string, _ lineReader) error {
	if len(args) != 2 {
		return errUsage
	}
	i, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage
	}
	return sh.sess().Move(args[0], i)
}

func (sh *shell) args(_ context.Context, _ []string, rest string, _ lineReader) error {
	if rest == "" {
		sh.printf("%s\n", sh.sess().Template())
		return nil
	}
	sh.sess().SetTemplate(rest)
	return nil
}

func (sh *shell) compile(ctx context.Context, _ []string, _ string, _ lineReader) error {
	if sh.cfg.compiler == nil {
		return errors.New("no compiler configured")
	}
	res, err := sh.sess().Compile(ctx, sh.cfg.compiler)
	if err != nil {
		sh.printf("%s\n", sh.sess().Output())
		return nil
	}
	sh.printf("%s", res.Output)
	if !strings.HasSuffix(res.Output, "\n") {
		sh.printf("\n")
	}
	if len(res.Diagnostics) == 0 {
		return nil
	}
	r := &diagnostic.Renderer{
		Color:        sh.cfg.color,
		SourceReader: source.Lookup(sh.sess().Files()),
	}
	sh.printf("\n")
	if err := r.RenderAll(sh.out, res.Diagnostics); err != nil {
		return err
	}
	sh.printf("\n")
	return r.RenderCounts(sh.out, res.Counts)
}

func (sh *shell) history(_ context.Context, _ []string, _ string, _ lineReader) error {
	entries := sh.sess().History()
	if len(entries) == 0 {
		sh.printf("no history\n")
		return nil
	}
	width := sh.cfg.width
	if width <= 2 {
		width = DefaultWidth
	}
	for _, e := range entries {
		sh.printf("[%s]\n", e.Time.Format("2006-01-02 15:04:05"))
		body := wrap.String(wordwrap.String(e.Content, width-2), width-2)
		sh.printf("%s\n", indent.String(strings.TrimRight(body, "\n"), 2))
	}
	return nil
}

func (sh *shell) clear(_ context.Context, _ []string, _ string, _ lineReader) error {
	sh.sess().ClearHistory()
	return nil
}

func (sh *shell) gist(ctx context.Context, args []string, _ string, _ lineReader) error {
	if len(args) != 1 {
		return errUsage
	}
	if sh.cfg.gists == nil {
		return errors.New("no gist loader configured")
	}
	if err := sh.sess().LoadGist(ctx, sh.cfg.gists, args[0], sh.cfg.store); err != nil {
		return err
	}
	sh.printf("loaded %s\n", strings.Join(source.Names(sh.sess().Files()), " "))
	return nil
}

func (sh *shell) zip(_ context.Context, args []string, _ string, _ lineReader) (err error) {
	if len(args) > 1 {
		return errUsage
	}
	path := export.DefaultArchiveName
	if len(args) == 1 {
		path = args[0]
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := export.WriteZip(f, sh.sess().Files(), sh.sess().Template()); err != nil {
		return err
	}
	sh.printf("wrote %s\n", path)
	return nil
}

func (sh *shell) save(ctx context.Context, _ []string, _ string, _ lineReader) error {
	if sh.cfg.store == nil {
		return errors.New("no store configured")
	}
	if err := sh.sess().Save(ctx, sh.cfg.store); err != nil {
		return err
	}
	sh.printf("saved %d files\n", len(sh.sess().Files()))
	return nil
}

func (sh *shell) help(_ context.Context, _ []string, _ string, _ lineReader) error {
	for _, c := range commands {
		usage := ":" + c.name
		if c.args != "" {
			usage += " " + c.args
		}
		sh.printf("  %-22s %s\n", usage, c.help)
	}
	return nil
}
