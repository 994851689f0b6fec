// Package testutil provides shared test doubles: a testify mock of the shell
// executor, a real unprivileged shell manager and a scripted stand-in for the
// apd backend.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/apcore/internal/shell"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockExecutor is a mock implementation of shell.Executor.
type MockExecutor struct {
	mock.Mock
}

var _ shell.Executor = (*MockExecutor)(nil)

// Exec mocks the Exec method.
func (m *MockExecutor) Exec(job shell.Job) shell.Result {
	args := m.Called(job)
	return args.Get(0).(shell.Result)
}

// Run mocks the Run method.
func (m *MockExecutor) Run(cmds ...string) shell.Result {
	args := m.Called(cmds)
	return args.Get(0).(shell.Result)
}

// Stream mocks the Stream method.
func (m *MockExecutor) Stream(stdout, stderr shell.Sink, cmds ...string) shell.Result {
	args := m.Called(stdout, stderr, cmds)
	return args.Get(0).(shell.Result)
}

// Submit mocks the Submit method. The registered return value, if any, is
// handed to done synchronously.
func (m *MockExecutor) Submit(done func(shell.Result), cmds ...string) {
	args := m.Called(cmds)
	if done != nil && len(args) > 0 {
		done(args.Get(0).(shell.Result))
	}
}

// FastCmd mocks the FastCmd method.
func (m *MockExecutor) FastCmd(cmd string) string {
	args := m.Called(cmd)
	return args.String(0)
}

// FastCmdResult mocks the FastCmdResult method.
func (m *MockExecutor) FastCmdResult(cmd string) bool {
	args := m.Called(cmd)
	return args.Bool(0)
}

// NewMockExecutor creates a mock executor.
func NewMockExecutor(t *testing.T) *MockExecutor {
	t.Helper()
	m := new(MockExecutor)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// OK is a successful result with the given stdout lines.
func OK(stdout ...string) shell.Result {
	return shell.Result{Code: 0, Stdout: stdout}
}

// Failed is a result with a non-zero exit code.
func Failed(code int, stderr ...string) shell.Result {
	return shell.Result{Code: code, Stderr: stderr}
}

// ShellManager returns a manager whose sessions are plain sh processes. The
// privileged mechanisms point at binaries that do not exist, so acquisition
// always falls through to sh.
func ShellManager(t *testing.T) *shell.Manager {
	t.Helper()
	strategy := shell.NewStrategy(shell.StrategyConfig{
		SuperCmd:         "/nonexistent/apcore-supercmd",
		SuperKey:         "test-key",
		SContext:         "u:r:magisk:s0",
		NativeLibDir:     t.TempDir(),
		HandshakeTimeout: 10 * time.Second,
	}, nil, nil)
	m := shell.NewManager(context.Background(), strategy, nil, nil)
	t.Cleanup(func() { _ = m.Close() })
	require.True(t, m.Get().IsAlive(), "no shell: %v", m.Get().Cause())
	return m
}

// FakeAPD is a shell script standing in for the apd backend. It records
// every invocation and keeps module state in files under its directory.
type FakeAPD struct {
	Path    string
	Dir     string
	logPath string
}

const fakeAPDScript = `#!/bin/sh
dir='%DIR%'
echo "$*" >> "$dir/calls.log"
case "$1 $2" in
"module list")
	cat "$dir/list" 2>/dev/null
	;;
"module install")
	[ -f "$3" ] || { echo "! package not found: $3" >&2; exit 1; }
	echo "- Installing $3"
	echo "- Done"
	;;
"module enable")
	[ -d "$dir/modules/$3" ] || { echo "! no such module: $3" >&2; exit 1; }
	rm -f "$dir/modules/$3/disable"
	;;
"module disable")
	[ -d "$dir/modules/$3" ] || { echo "! no such module: $3" >&2; exit 1; }
	touch "$dir/modules/$3/disable"
	;;
"module uninstall")
	[ -d "$dir/modules/$3" ] || { echo "! no such module: $3" >&2; exit 1; }
	touch "$dir/modules/$3/remove"
	;;
*)
	echo "! unknown command: $*" >&2
	exit 2
	;;
esac
`

// NewFakeAPD writes the script into a temporary directory.
func NewFakeAPD(t *testing.T) *FakeAPD {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "modules"), 0o755))

	script := strings.ReplaceAll(fakeAPDScript, "%DIR%", dir)
	path := filepath.Join(dir, "apd")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	return &FakeAPD{Path: path, Dir: dir, logPath: filepath.Join(dir, "calls.log")}
}

// SetList sets the output of "module list".
func (f *FakeAPD) SetList(t *testing.T, list string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.Dir, "list"), []byte(list), 0o644))
}

// AddModule registers an installed module.
func (f *FakeAPD) AddModule(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(f.Dir, "modules", id), 0o755))
}

// Flag reports whether the module has the named marker file (disable, remove).
func (f *FakeAPD) Flag(id, name string) bool {
	_, err := os.Stat(filepath.Join(f.Dir, "modules", id, name))
	return err == nil
}

// Calls returns the recorded argument lists.
func (f *FakeAPD) Calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.logPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}
