package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/apcore/internal/shared/id"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrClosed is returned for jobs submitted to a session after Close.
	ErrClosed = errors.New("shell: session closed")
	// ErrExited is returned when the shell process went away.
	ErrExited = errors.New("shell: process exited")
	// ErrHandshake is returned when a freshly spawned shell does not answer.
	ErrHandshake = errors.New("shell: handshake failed")
)

const (
	lineBuffer    = 256
	readerSize    = 64 * 1024
	closeGrace    = 3 * time.Second
	markerPrefix  = "__apcore_"
	handshakeProg = "id -u"
)

// Initializer prepares a fresh session before it is handed out.
// An error discards the session.
type Initializer func(s *Session) error

// Session is a long-running shell process. Jobs run strictly one at a time
// in submission order.
type Session struct {
	id         id.SessionID
	mechanism  Mechanism
	startedAt  time.Time
	privileged bool

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout <-chan string
	stderr <-chan string

	mu        sync.Mutex
	closing   atomic.Bool
	closeOnce sync.Once
	quit      chan struct{}
	exited    chan struct{}

	// cause is non-nil for dead sessions.
	cause error
}

// Open spawns the mechanism's command, verifies it answers and runs the
// initializers. ctx bounds the whole start-up; the process is killed when it
// expires.
func Open(ctx context.Context, m Mechanism, inits ...Initializer) (*Session, error) {
	if len(m.Argv) == 0 {
		return nil, fmt.Errorf("mechanism %s: empty command", m.Name)
	}

	cmd := exec.Command(m.Argv[0], m.Argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", m.Binary(), err)
	}

	outCh := make(chan string, lineBuffer)
	errCh := make(chan string, lineBuffer)
	s := &Session{
		id:        id.NewSessionID(),
		mechanism: m,
		startedAt: time.Now(),
		cmd:       cmd,
		stdin:     stdin,
		stdout:    outCh,
		stderr:    errCh,
		quit:      make(chan struct{}),
		exited:    make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go s.pump(stdout, outCh, &readers)
	go s.pump(stderr, errCh, &readers)
	go func() {
		readers.Wait()
		_ = cmd.Wait()
		close(s.exited)
	}()

	if err := s.handshake(ctx); err != nil {
		s.abort()
		return nil, err
	}
	for _, init := range inits {
		if err := init(s); err != nil {
			s.abort()
			return nil, fmt.Errorf("initialize session: %w", err)
		}
	}
	return s, nil
}

// newDeadSession returns a session that was never started. Every job on it
// fails with cause.
func newDeadSession(cause error) *Session {
	s := &Session{
		id:        id.NewSessionID(),
		mechanism: Mechanism{Name: "none"},
		startedAt: time.Now(),
		quit:      make(chan struct{}),
		exited:    make(chan struct{}),
		cause:     cause,
	}
	close(s.quit)
	close(s.exited)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() id.SessionID { return s.id }

// Mechanism returns the mechanism the session was spawned with.
func (s *Session) Mechanism() Mechanism { return s.mechanism }

// StartedAt returns the spawn time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// IsPrivileged reports whether the shell runs as uid 0.
func (s *Session) IsPrivileged() bool { return s.privileged }

// Cause returns why the session is unusable, or nil for a started session.
func (s *Session) Cause() error { return s.cause }

// IsAlive reports whether the session can still accept jobs.
func (s *Session) IsAlive() bool {
	if s.cause != nil || s.closing.Load() {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// Exec runs job and blocks until it finishes.
func (s *Session) Exec(job Job) Result {
	return s.exec(context.Background(), job)
}

// Submit runs job in the background and hands the result to done, if set.
func (s *Session) Submit(job Job, done func(Result)) {
	go func() {
		res := s.Exec(job)
		if done != nil {
			done(res)
		}
	}()
}

// Close ends the shell. It waits for the in-flight job, if any, and is safe
// to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cmd == nil {
			return
		}
		close(s.quit)
		_, _ = io.WriteString(s.stdin, "exit\n")
		_ = s.stdin.Close()
		s.awaitExit()
	})
	return nil
}

func (s *Session) abort() {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		close(s.quit)
		_ = s.stdin.Close()
		_ = s.cmd.Process.Kill()
		select {
		case <-s.exited:
		case <-time.After(closeGrace):
		}
	})
}

func (s *Session) awaitExit() {
	select {
	case <-s.exited:
		return
	case <-time.After(closeGrace):
	}
	_ = s.cmd.Process.Kill()
	select {
	case <-s.exited:
	case <-time.After(closeGrace):
	}
}

func (s *Session) handshake(ctx context.Context) error {
	res := s.exec(ctx, NewJob(handshakeProg))
	if res.Cause != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, res.Cause)
	}
	if res.Code != 0 {
		return fmt.Errorf("%w: %s exited with %d", ErrHandshake, handshakeProg, res.Code)
	}
	s.privileged = strings.TrimSpace(res.LastLine()) == "0"
	return nil
}

func (s *Session) exec(ctx context.Context, job Job) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cause != nil {
		return failed(s.cause)
	}
	if s.closing.Load() {
		return failed(ErrClosed)
	}
	select {
	case <-s.exited:
		return failed(ErrExited)
	default:
	}
	if len(job.Commands) == 0 {
		return Result{}
	}

	marker := markerPrefix + id.NewJobID().String()
	if _, err := io.WriteString(s.stdin, script(job.Commands, marker)); err != nil {
		return failed(fmt.Errorf("write job: %w", err))
	}

	var (
		res    = Result{Code: -1}
		stdout []string
		stderr []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		code, lines, err := collect(gctx, s.stdout, marker, job.Stdout, true)
		stdout = lines
		res.Code = code
		return err
	})
	g.Go(func() error {
		_, lines, err := collect(gctx, s.stderr, marker, job.Stderr, false)
		stderr = lines
		return err
	})
	if err := g.Wait(); err != nil {
		res.Code = -1
		res.Cause = err
	}
	res.Stdout = stdout
	res.Stderr = stderr
	return res
}

// collect reads lines until marker. Text preceding the marker on the same
// line belongs to the job.
func collect(ctx context.Context, ch <-chan string, marker string, sink Sink, wantCode bool) (int, []string, error) {
	var lines []string
	emit := func(line string) {
		lines = append(lines, line)
		if sink != nil {
			sink.OnLine(line)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return -1, lines, ctx.Err()
		case line, ok := <-ch:
			if !ok {
				return -1, lines, ErrExited
			}
			i := strings.Index(line, marker)
			if i < 0 {
				emit(line)
				continue
			}
			if i > 0 {
				emit(line[:i])
			}
			if !wantCode {
				return 0, lines, nil
			}
			code, err := strconv.Atoi(strings.TrimSpace(line[i+len(marker):]))
			if err != nil {
				return -1, lines, fmt.Errorf("malformed job trailer %q", line)
			}
			return code, lines, nil
		}
	}
}

func (s *Session) pump(r io.Reader, ch chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(ch)

	br := bufio.NewReaderSize(r, readerSize)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			select {
			case ch <- strings.TrimRight(line, "\r\n"):
			case <-s.quit:
			}
		}
		if err != nil {
			return
		}
	}
}
