package shell

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/apcore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/apcore/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// Acquirer produces sessions. It must never return nil.
type Acquirer interface {
	Acquire(ctx context.Context) *Session
}

// Executor runs commands on the current session. Manager implements it;
// callers depend on this interface so tests can substitute it.
type Executor interface {
	Exec(job Job) Result
	Run(cmds ...string) Result
	Stream(stdout, stderr Sink, cmds ...string) Result
	Submit(done func(Result), cmds ...string)
	FastCmd(cmd string) string
	FastCmdResult(cmd string) bool
}

// Manager owns the process-wide current session.
type Manager struct {
	acquirer  Acquirer
	current   atomic.Pointer[Session]
	refreshMu sync.Mutex
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

var _ Executor = (*Manager)(nil)

// NewManager acquires the initial session.
func NewManager(ctx context.Context, acquirer Acquirer, logger *logging.Logger, metrics *monitoring.Metrics) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		acquirer: acquirer,
		logger:   logger.Named("session"),
		metrics:  metrics,
	}
	s := m.acquire(ctx)
	m.current.Store(s)
	metrics.SetPrivileged(s.IsPrivileged())
	return m
}

// Get returns the current session. It is never nil.
func (m *Manager) Get() *Session {
	return m.current.Load()
}

// IsPrivileged reports whether the current session runs as root.
func (m *Manager) IsPrivileged() bool {
	return m.Get().IsPrivileged()
}

// Refresh replaces the current session. The new session is published before
// the old one is closed, so Get never observes a gap. Concurrent refreshes
// are serialized.
func (m *Manager) Refresh(ctx context.Context) *Session {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	next := m.acquire(ctx)
	prev := m.current.Swap(next)
	m.metrics.RecordRefresh(next.IsPrivileged())
	m.logger.Info("Session refreshed",
		zap.String("session", next.ID().String()),
		zap.String("mechanism", next.Mechanism().Name),
		zap.Bool("privileged", next.IsPrivileged()))

	if prev != nil && prev != next {
		_ = prev.Close()
	}
	return next
}

// Close closes the current session.
func (m *Manager) Close() error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	return m.Get().Close()
}

// Exec runs job on the current session. A job rejected because a refresh
// closed its session is re-run on the replacement.
func (m *Manager) Exec(job Job) Result {
	start := time.Now()
	s := m.Get()
	res := s.Exec(job)
	for errors.Is(res.Cause, ErrClosed) {
		cur := m.Get()
		if cur == s {
			break
		}
		s = cur
		res = s.Exec(job)
	}
	m.metrics.RecordJob(res.IsSuccess(), time.Since(start))
	if res.Cause != nil {
		m.logger.Debug("Job did not complete",
			zap.String("session", s.ID().String()),
			zap.Error(res.Cause))
	}
	return res
}

// Run executes cmds as one job.
func (m *Manager) Run(cmds ...string) Result {
	return m.Exec(NewJob(cmds...))
}

// Stream executes cmds as one job, forwarding lines to the sinks as they arrive.
func (m *Manager) Stream(stdout, stderr Sink, cmds ...string) Result {
	return m.Exec(NewJob(cmds...).To(stdout, stderr))
}

// Submit executes cmds in the background. done may be nil.
func (m *Manager) Submit(done func(Result), cmds ...string) {
	job := NewJob(cmds...)
	go func() {
		res := m.Exec(job)
		if done != nil {
			done(res)
		}
	}()
}

// FastCmd runs cmd and returns its stdout joined by newlines, or "" when the
// job could not run.
func (m *Manager) FastCmd(cmd string) string {
	res := m.Run(cmd)
	if res.Cause != nil {
		return ""
	}
	return res.Output()
}

// FastCmdResult runs cmd and reports whether it exited with status 0.
func (m *Manager) FastCmdResult(cmd string) bool {
	return m.Run(cmd).IsSuccess()
}

func (m *Manager) acquire(ctx context.Context) *Session {
	s := m.acquirer.Acquire(ctx)
	if s == nil {
		s = newDeadSession(errors.New("acquirer returned no session"))
	}
	return s
}
