// Copyright © 2024 The runcoliru authors

// Package session holds the state of one playground: the open files, the
// compile command template, and the results of past compilations.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luthersystems/runcoliru/annotate"
	"github.com/luthersystems/runcoliru/diagnostic"
	"github.com/luthersystems/runcoliru/gist"
	"github.com/luthersystems/runcoliru/parser"
	"github.com/luthersystems/runcoliru/shellcmd"
	"github.com/luthersystems/runcoliru/source"
	"github.com/luthersystems/runcoliru/store"
	"go.uber.org/zap"
)

// DefaultTemplate compiles every .cpp file, runs the program, and prints
// its exit status.
const DefaultTemplate = "g++ -std=c++20 -O2 -Wall -pedantic -pthread " + shellcmd.Placeholder + " && ./a.out; echo Returned: $?"

// DefaultFileName is the file a new session starts with.
const DefaultFileName = "main.cpp"

// DefaultProgram is the content of a new session's first file.
const DefaultProgram = `#include <iostream>
#include <string>
#include <vector>

template<typename T>
std::ostream& operator<<(std::ostream& os, const std::vector<T>& vec)
{
    for (auto& el : vec)
    {
        os << el << ' ';
    }
    return os;
}

int main()
{
    std::vector<std::string> vec = {
        "Hello", "from", "GCC", __VERSION__, "!"
    };
    std::cout << vec << std::endl;
}
`

// FailurePrefix starts the output recorded for a compile request that did
// not reach the compiler.
const FailurePrefix = "Error: Failed to compile or run the code."

var (
	ErrBusy          = errors.New("a compilation is already in progress")
	ErrInvalidName   = errors.New("invalid file name")
	ErrDuplicateName = errors.New("file already exists")
	ErrNotFound      = errors.New("file not found")
	ErrLastFile      = errors.New("a session needs at least one file")
)

// Compiler runs a shell command remotely and returns its output.
type Compiler interface {
	Compile(ctx context.Context, cmd string) (string, error)
}

// GistLoader fetches the files of a gist.
type GistLoader interface {
	Load(ctx context.Context, id string) ([]source.File, error)
}

// HistoryEntry is one recorded compile output.
type HistoryEntry struct {
	Time    time.Time `json:"time"`
	Content string    `json:"content"`
}

// Result is the outcome of a successful Compile.
type Result struct {
	Output string `json:"output"`

	// Diagnostics holds every diagnostic parsed from Output.
	Diagnostics []diagnostic.Diagnostic `json:"diagnostics"`

	// Counts covers the diagnostics that land on a session file.
	Counts diagnostic.Counts `json:"counts"`
}

// Session is safe for concurrent use.
type Session struct {
	mu          sync.Mutex
	files       []source.File
	active      string
	template    string
	output      string
	history     []HistoryEntry
	diagnostics []diagnostic.Diagnostic
	counts      diagnostic.Counts
	busy        bool

	logger    *zap.Logger
	now       func() time.Time
	cmdOpts   []shellcmd.Option
	annotator *annotate.Annotator
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock sets the time source for history entries.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithTemplate sets the initial command template.
func WithTemplate(t string) Option {
	return func(s *Session) { s.template = t }
}

// WithCommandOptions sets options passed to shellcmd.Build.
func WithCommandOptions(opts ...shellcmd.Option) Option {
	return func(s *Session) { s.cmdOpts = opts }
}

// New returns a session holding the default program.
func New(opts ...Option) *Session {
	s := &Session{
		files:    []source.File{{Name: DefaultFileName, Content: DefaultProgram}},
		active:   DefaultFileName,
		template: DefaultTemplate,
		counts:   diagnostic.Counts{},
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.annotator = &annotate.Annotator{Logger: s.logger}
	return s
}

// Files returns a copy of the files in order.
func (s *Session) Files() []source.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]source.File(nil), s.files...)
}

// File returns the file called name.
func (s *Session) File(name string) (source.File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := source.Index(s.files, name); i >= 0 {
		return s.files[i], true
	}
	return source.File{}, false
}

// Active returns the name of the active file.
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive makes name the active file.
func (s *Session) SetActive(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if source.Index(s.files, name) < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.active = name
	return nil
}

// Create adds an empty file and makes it active.
func (s *Session) Create(name string) error {
	if !source.ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if source.Index(s.files, name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	s.files = append(s.files, source.File{Name: name})
	s.active = name
	return nil
}

// Put writes content to name, adding the file if it does not exist.
func (s *Session) Put(name, content string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := source.Index(s.files, name); i >= 0 {
		s.files[i].Content = content
		return nil
	}
	s.files = append(s.files, source.File{Name: name, Content: content})
	return nil
}

// SetContent replaces the content of an existing file.
func (s *Session) SetContent(name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := source.Index(s.files, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.files[i].Content = content
	return nil
}

// Close removes a file. The last file cannot be closed. Closing the active
// file activates the last remaining one.
func (s *Session) Close(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := source.Index(s.files, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if len(s.files) == 1 {
		return ErrLastFile
	}
	s.files = append(s.files[:i], s.files[i+1:]...)
	if s.active == name {
		s.active = s.files[len(s.files)-1].Name
	}
	return nil
}

// Move places name at index, shifting the files in between. The index is
// clamped to the valid range.
func (s *Session) Move(name string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := source.Index(s.files, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if index < 0 {
		index = 0
	}
	if index > len(s.files)-1 {
		index = len(s.files) - 1
	}
	f := s.files[i]
	s.files = append(s.files[:i], s.files[i+1:]...)
	s.files = append(s.files[:index], append([]source.File{f}, s.files[index:]...)...)
	return nil
}

// Replace swaps in a new set of files and activates the first.
func (s *Session) Replace(files []source.File) error {
	if len(files) == 0 {
		return ErrLastFile
	}
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if f.Name == "" {
			return fmt.Errorf("%w: empty name", ErrInvalidName)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateName, f.Name)
		}
		seen[f.Name] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append([]source.File(nil), files...)
	s.active = files[0].Name
	return nil
}

// Template returns the command template.
func (s *Session) Template() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template
}

// SetTemplate replaces the command template.
func (s *Session) SetTemplate(t string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.template = t
}

// Command builds the shell command for the current files and template.
func (s *Session) Command() shellcmd.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return shellcmd.Build(s.files, s.template, s.cmdOpts...)
}

// Output returns the output of the last compilation.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// History returns the recorded outputs, newest first.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}

// Diagnostics returns the diagnostics of the last compilation.
func (s *Session) Diagnostics() []diagnostic.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]diagnostic.Diagnostic(nil), s.diagnostics...)
}

// Counts returns the per-file counts of the last compilation.
func (s *Session) Counts() diagnostic.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(diagnostic.Counts, len(s.counts))
	for k, v := range s.counts {
		counts[k] = v
	}
	return counts
}

// Busy reports whether a compilation is in progress.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Compile sends the session's command to c and records the output. Only
// one compilation may run at a time; overlapping calls fail with ErrBusy.
// When the request fails the failure message becomes the output, the
// diagnostics are cleared, and the error is returned.
func (s *Session) Compile(ctx context.Context, c Compiler) (Result, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return Result{}, ErrBusy
	}
	s.busy = true
	files := append([]source.File(nil), s.files...)
	cmd := shellcmd.Build(files, s.template, s.cmdOpts...)
	s.mu.Unlock()

	s.logger.Debug("compiling",
		zap.Strings("files", source.Names(files)),
		zap.Strings("compiled", cmd.Compiled),
		zap.Int("commandBytes", len(cmd.Text)))

	out, err := c.Compile(ctx, cmd.Text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		s.logger.Warn("compile failed", zap.Error(err))
		s.record(fmt.Sprintf("%s %v", FailurePrefix, err))
		s.diagnostics = nil
		s.counts = diagnostic.Counts{}
		return Result{}, err
	}

	s.record(out)
	diags := parser.Parse(out)
	counts := diagnostic.Summarize(s.annotator.FilterFiles(diags, files))
	s.diagnostics = diags
	s.counts = counts
	return Result{Output: out, Diagnostics: diags, Counts: counts}, nil
}

func (s *Session) record(output string) {
	s.output = output
	s.history = append([]HistoryEntry{{Time: s.now(), Content: output}}, s.history...)
}

// ClearHistory clears the output and its history.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = ""
	s.history = nil
}

// Save persists the files under store.TabsKey.
func (s *Session) Save(ctx context.Context, st store.Store) error {
	b, err := json.Marshal(s.Files())
	if err != nil {
		return err
	}
	if err := st.Set(ctx, store.TabsKey, b); err != nil {
		return fmt.Errorf("save tabs: %w", err)
	}
	return nil
}

// Load restores files saved by Save and activates the first. It reports
// false and leaves the session unchanged when nothing was saved.
func (s *Session) Load(ctx context.Context, st store.Store) (bool, error) {
	b, ok, err := st.Get(ctx, store.TabsKey)
	if err != nil {
		return false, fmt.Errorf("load tabs: %w", err)
	}
	if !ok {
		return false, nil
	}
	var files []source.File
	if err := json.Unmarshal(b, &files); err != nil {
		return false, fmt.Errorf("load tabs: %w", err)
	}
	if len(files) == 0 {
		return false, nil
	}
	if err := s.Replace(files); err != nil {
		return false, fmt.Errorf("load tabs: %w", err)
	}
	return true, nil
}

// LoadGist replaces the files with the gist named by ref, activates its
// entry point, and saves the result to st when st is not nil.
func (s *Session) LoadGist(ctx context.Context, loader GistLoader, ref string, st store.Store) error {
	id, err := gist.ParseRef(ref)
	if err != nil {
		return err
	}
	files, err := loader.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Replace(files); err != nil {
		return err
	}
	if err := s.SetActive(source.EntryPoint(files)); err != nil {
		return err
	}
	s.logger.Info("loaded gist", zap.String("id", id), zap.Strings("files", source.Names(files)))
	if st == nil {
		return nil
	}
	return s.Save(ctx, st)
}
