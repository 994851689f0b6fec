package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/apcore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/apcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/apcore/internal/shared/paths"
	"go.uber.org/zap"
)

// Mechanism names, in fallback order.
const (
	MechanismPrimary = "primary"
	MechanismKPatch  = "kpatch"
	MechanismSu      = "su"
	MechanismShell   = "sh"
)

// DefaultHandshakeTimeout bounds a single mechanism attempt.
const DefaultHandshakeTimeout = 20 * time.Second

// Mechanism is one way of obtaining a shell.
type Mechanism struct {
	Name string
	Argv []string
}

// Binary returns the program the mechanism executes.
func (m Mechanism) Binary() string {
	if len(m.Argv) == 0 {
		return ""
	}
	return m.Argv[0]
}

// String omits the arguments; they carry the superkey.
func (m Mechanism) String() string {
	return m.Name + "(" + m.Binary() + ")"
}

// SpawnFunc starts a session for a mechanism. Open is the production spawner.
type SpawnFunc func(ctx context.Context, m Mechanism, inits ...Initializer) (*Session, error)

// StrategyConfig holds the elevation parameters.
type StrategyConfig struct {
	// SuperCmd is the kernel-hooked command that elevates when given SuperKey.
	SuperCmd string
	SuperKey string
	// SContext is the SELinux context requested for the shell.
	SContext string
	// NativeLibDir holds the kpatch compatibility binary.
	NativeLibDir     string
	HandshakeTimeout time.Duration
}

// Strategy produces sessions by trying mechanisms in order.
type Strategy struct {
	cfg     StrategyConfig
	spawn   SpawnFunc
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewStrategy creates a strategy spawning real processes.
func NewStrategy(cfg StrategyConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Strategy {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Strategy{
		cfg:     cfg,
		spawn:   Open,
		logger:  logger.Named("shell"),
		metrics: metrics,
	}
}

// WithSpawner replaces the process spawner.
func (st *Strategy) WithSpawner(spawn SpawnFunc) *Strategy {
	st.spawn = spawn
	return st
}

// Mechanisms returns the chain used for working sessions.
func (st *Strategy) Mechanisms() []Mechanism {
	return []Mechanism{st.primary(), st.kpatch(), {Name: MechanismShell, Argv: []string{"sh"}}}
}

// DetectMechanisms returns the chain used for capability detection. It also
// accepts a generic su before giving up on privilege.
func (st *Strategy) DetectMechanisms() []Mechanism {
	return []Mechanism{
		st.primary(),
		st.kpatch(),
		{Name: MechanismSu, Argv: []string{"su"}},
		{Name: MechanismShell, Argv: []string{"sh"}},
	}
}

func (st *Strategy) primary() Mechanism {
	return Mechanism{
		Name: MechanismPrimary,
		Argv: []string{st.cfg.SuperCmd, st.cfg.SuperKey, "-Z", st.cfg.SContext},
	}
}

func (st *Strategy) kpatch() Mechanism {
	return Mechanism{
		Name: MechanismKPatch,
		Argv: []string{paths.KPatchPath(st.cfg.NativeLibDir), st.cfg.SuperKey, "su", "-Z", st.cfg.SContext},
	}
}

// Acquire returns a working session with the extra binary directories on
// PATH. It never returns nil; when every mechanism fails the session is dead.
func (st *Strategy) Acquire(ctx context.Context) *Session {
	return st.first(ctx, st.Mechanisms(), PathInitializer(paths.ExtraBinDirs...))
}

// Detect returns a session for capability checks. No initializer runs.
func (st *Strategy) Detect(ctx context.Context) *Session {
	return st.first(ctx, st.DetectMechanisms())
}

func (st *Strategy) first(ctx context.Context, chain []Mechanism, inits ...Initializer) *Session {
	var errs []error
	for _, m := range chain {
		start := time.Now()
		s, err := st.attempt(ctx, m, inits)
		st.metrics.RecordAcquireAttempt(m.Name, err == nil)
		if err == nil {
			st.logger.Info("Session acquired",
				zap.String("mechanism", m.Name),
				zap.String("session", s.ID().String()),
				zap.Bool("privileged", s.IsPrivileged()),
				zap.Duration("took", time.Since(start)))
			return s
		}
		st.logger.Warn("Elevation mechanism failed",
			zap.String("mechanism", m.Name),
			zap.String("binary", m.Binary()),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
	}

	cause := errors.Join(errs...)
	st.logger.Error("No shell could be started", zap.Error(cause))
	return newDeadSession(cause)
}

func (st *Strategy) attempt(ctx context.Context, m Mechanism, inits []Initializer) (s *Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("spawn panicked: %v", r)
		}
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, st.cfg.HandshakeTimeout)
	defer cancel()

	s, err = st.spawn(attemptCtx, m, inits...)
	if err == nil && s == nil {
		err = errors.New("spawner returned no session")
	}
	return s, err
}

// PathInitializer appends dirs to PATH in the session.
func PathInitializer(dirs ...string) Initializer {
	return func(s *Session) error {
		if len(dirs) == 0 {
			return nil
		}
		res := s.Exec(NewJob("export PATH=$PATH:" + strings.Join(dirs, ":")))
		if !res.IsSuccess() {
			return fmt.Errorf("extend PATH: %s", res)
		}
		return nil
	}
}
