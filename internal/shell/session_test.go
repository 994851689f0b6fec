package shell

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shMechanism = Mechanism{Name: MechanismShell, Argv: []string{"sh"}}

func openSh(t *testing.T, inits ...Initializer) *Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, shMechanism, inits...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenShell(t *testing.T) {
	s := openSh(t)

	assert.True(t, s.IsAlive())
	assert.NoError(t, s.Cause())
	assert.Equal(t, MechanismShell, s.Mechanism().Name)
	assert.Equal(t, os.Geteuid() == 0, s.IsPrivileged())
	assert.NotEmpty(t, s.ID())
}

func TestOpenMissingBinary(t *testing.T) {
	_, err := Open(context.Background(), Mechanism{Name: "missing", Argv: []string{"/nonexistent/apcore-su"}})
	assert.Error(t, err)
}

func TestOpenEmptyArgv(t *testing.T) {
	_, err := Open(context.Background(), Mechanism{Name: "empty"})
	assert.Error(t, err)
}

func TestOpenProcessExitsImmediately(t *testing.T) {
	_, err := Open(context.Background(), Mechanism{Name: "false", Argv: []string{"false"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandshake)
}

func TestOpenHandshakeTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Open(ctx, Mechanism{Name: "sleep", Argv: []string{"sleep", "30"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecCapturesOutput(t *testing.T) {
	s := openSh(t)

	res := s.Exec(NewJob("echo one", "echo two", "echo oops >&2"))

	assert.True(t, res.IsSuccess())
	assert.Equal(t, []string{"one", "two"}, res.Stdout)
	assert.Equal(t, []string{"oops"}, res.Stderr)
	assert.Equal(t, "one\ntwo", res.Output())
	assert.Equal(t, "two", res.LastLine())
}

func TestExecExitCodeOfLastCommand(t *testing.T) {
	s := openSh(t)

	res := s.Exec(NewJob("false", "true"))
	assert.True(t, res.IsSuccess())

	res = s.Exec(NewJob("true", "sh -c 'exit 3'"))
	assert.False(t, res.IsSuccess())
	assert.Equal(t, 3, res.Code)
	assert.NoError(t, res.Cause)
}

func TestExecOutputWithoutTrailingNewline(t *testing.T) {
	s := openSh(t)

	res := s.Exec(NewJob("printf partial", "printf err >&2"))

	assert.True(t, res.IsSuccess())
	assert.Equal(t, []string{"partial"}, res.Stdout)
	assert.Equal(t, []string{"err"}, res.Stderr)
}

func TestExecEmptyJob(t *testing.T) {
	s := openSh(t)

	res := s.Exec(NewJob())
	assert.True(t, res.IsSuccess())
	assert.Empty(t, res.Stdout)
}

func TestSessionKeepsState(t *testing.T) {
	s := openSh(t)

	require.True(t, s.Exec(NewJob("export APCORE_TEST_VAR=kept", "cd /")).IsSuccess())
	res := s.Exec(NewJob("echo $APCORE_TEST_VAR", "pwd"))

	assert.Equal(t, []string{"kept", "/"}, res.Stdout)
}

func TestExecStreamsInOrder(t *testing.T) {
	s := openSh(t)
	out := &Lines{}
	errs := &Lines{}

	res := s.Exec(NewJob("for i in 1 2 3 4 5; do echo $i; echo e$i >&2; done").To(out, errs))

	require.True(t, res.IsSuccess())
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, out.All())
	assert.Equal(t, []string{"e1", "e2", "e3", "e4", "e5"}, errs.All())
	assert.Equal(t, out.All(), res.Stdout)
}

func TestExecLargeOutput(t *testing.T) {
	s := openSh(t)

	res := s.Exec(NewJob("i=0; while [ $i -lt 2000 ]; do echo line$i; i=$((i+1)); done"))

	require.True(t, res.IsSuccess())
	require.Len(t, res.Stdout, 2000)
	assert.Equal(t, "line1999", res.Stdout[1999])
}

func TestJobsRunOneAtATime(t *testing.T) {
	s := openSh(t)

	const n = 20
	var wg sync.WaitGroup
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tag := strconv.Itoa(i)
			results[i] = s.Exec(NewJob("echo start"+tag, "echo end"+tag))
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		tag := strconv.Itoa(i)
		assert.Equal(t, []string{"start" + tag, "end" + tag}, res.Stdout)
	}
}

func TestSubmit(t *testing.T) {
	s := openSh(t)

	done := make(chan Result, 1)
	s.Submit(NewJob("echo async"), func(r Result) { done <- r })

	select {
	case res := <-done:
		assert.Equal(t, []string{"async"}, res.Stdout)
	case <-time.After(10 * time.Second):
		t.Fatal("submit callback not invoked")
	}
}

func TestExecAfterClose(t *testing.T) {
	s := openSh(t)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	res := s.Exec(NewJob("echo never"))
	assert.ErrorIs(t, res.Cause, ErrClosed)
	assert.False(t, res.IsSuccess())
	assert.False(t, s.IsAlive())
}

func TestCloseWaitsForRunningJob(t *testing.T) {
	s := openSh(t)

	done := make(chan Result, 1)
	s.Submit(NewJob("sleep 0.3", "echo finished"), func(r Result) { done <- r })
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Close())

	res := <-done
	assert.True(t, res.IsSuccess())
	assert.Equal(t, []string{"finished"}, res.Stdout)
}

func TestShellExitsDuringJob(t *testing.T) {
	s := openSh(t)

	res := s.Exec(NewJob("echo bye", "exit 0"))
	assert.ErrorIs(t, res.Cause, ErrExited)
	assert.Equal(t, -1, res.Code)

	assert.Eventually(t, func() bool { return !s.IsAlive() }, 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, s.Exec(NewJob("true")).Cause, ErrExited)
}

func TestInitializerRunsFirst(t *testing.T) {
	s := openSh(t, PathInitializer("/apcore/one", "/apcore/two"))

	res := s.Exec(NewJob("echo $PATH"))
	assert.True(t, strings.HasSuffix(res.LastLine(), ":/apcore/one:/apcore/two"), res.LastLine())
}

func TestInitializerFailureDiscardsSession(t *testing.T) {
	failing := func(*Session) error { return errors.New("boom") }

	_, err := Open(context.Background(), shMechanism, failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestDeadSession(t *testing.T) {
	cause := errors.New("nothing started")
	s := newDeadSession(cause)

	assert.False(t, s.IsAlive())
	assert.False(t, s.IsPrivileged())

	res := s.Exec(NewJob("echo hi"))
	assert.ErrorIs(t, res.Cause, cause)
	assert.False(t, res.IsSuccess())
	assert.NoError(t, s.Close())
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"plain", "plain"},
		{"/data/adb/modules/a-b_c.1", "/data/adb/modules/a-b_c.1"},
		{"two words", "'two words'"},
		{"it's", `'it'\''s'`},
		{"$(reboot)", "'$(reboot)'"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Quote(tt.in), tt.in)
	}
}

func TestQuoteRoundTripsThroughShell(t *testing.T) {
	s := openSh(t)

	for _, in := range []string{"it's", "a b", "$HOME", "`id`", "x;y"} {
		res := s.Exec(NewJob("printf '%s\\n' " + Quote(in)))
		assert.Equal(t, []string{in}, res.Stdout, in)
	}
}

func TestJobBuilders(t *testing.T) {
	cmds := []string{"a", "b"}
	base := NewJob(cmds...)
	cmds[0] = "changed"

	assert.Equal(t, []string{"a", "b"}, base.Commands)

	sink := &Lines{}
	routed := base.To(sink, nil)
	assert.Equal(t, Sink(sink), routed.Stdout)
	assert.Nil(t, base.Stdout)
}

func TestTee(t *testing.T) {
	a, b := &Lines{}, &Lines{}
	sink := Tee(a, nil, b)

	sink.OnLine("x")

	assert.Equal(t, []string{"x"}, a.All())
	assert.Equal(t, []string{"x"}, b.All())
}
