package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GriffinCanCode/apcore/internal/archive"
	"github.com/GriffinCanCode/apcore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/apcore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/apcore/internal/manifest"
	"github.com/GriffinCanCode/apcore/internal/shared/id"
	"github.com/GriffinCanCode/apcore/internal/shared/paths"
	"github.com/GriffinCanCode/apcore/internal/shell"
	"go.uber.org/zap"
)

// InvalidNameMessage is reported on stderr when module.prop is missing or
// has a blank name.
const InvalidNameMessage = "Invalid name in module.prop"

// Runner executes privileged jobs. *shell.Manager satisfies it.
type Runner interface {
	Stream(stdout, stderr shell.Sink, cmds ...string) shell.Result
}

// Config locates the backend and the install directories.
type Config struct {
	APDPath     string
	KPMSDir     string
	CacheDir    string
	StagingRoot string
}

// Installer runs module installs.
type Installer struct {
	cfg     Config
	runner  Runner
	logger  *logging.Logger
	metrics *monitoring.Metrics

	locks map[Kind]*sync.Mutex

	newStagingName func() string
	now            func() time.Time
}

// New creates an installer.
func New(cfg Config, runner Runner, logger *logging.Logger, metrics *monitoring.Metrics) *Installer {
	if logger == nil {
		logger = logging.NewNop()
	}
	locks := make(map[Kind]*sync.Mutex, len(Kinds))
	for _, k := range Kinds {
		locks[k] = &sync.Mutex{}
	}
	return &Installer{
		cfg:            cfg,
		runner:         runner,
		logger:         logger.Named("installer"),
		metrics:        metrics,
		locks:          locks,
		newStagingName: func() string { return id.NewStagingID().String() },
		now:            time.Now,
	}
}

// install carries the state of one Install call.
type install struct {
	kind    Kind
	cache   string
	staging string
	state   State
	out     *reporter
	log     *logging.Logger
}

func (st *install) enter(s State) {
	st.state = s
	st.log.Debug("Install state", zap.Stringer("state", s))
}

// Install runs the full install of the package read from src and reports
// through obs. It returns the value passed to obs.OnFinish.
func (in *Installer) Install(ctx context.Context, src io.Reader, kind Kind, obs Observer) (ok bool) {
	start := in.now()
	st := &install{
		kind: kind,
		out:  newReporter(obs),
		log:  in.logger.With(zap.String("kind", kind.String())),
	}

	if !kind.Valid() {
		st.out.stderr(fmt.Sprintf("Unsupported module kind: %s", kind))
		st.out.finish(false)
		return false
	}

	lock := in.locks[kind]
	lock.Lock()
	defer lock.Unlock()

	st.cache = paths.PackageCache(in.cfg.CacheDir, kind.String())
	defer func() {
		in.finalize(st, ok)
		in.metrics.RecordInstall(kind.String(), ok, in.now().Sub(start))
		st.out.finish(ok)
	}()

	st.enter(StateFetching)
	if err := fetch(src, st.cache); err != nil {
		st.out.stderr(fmt.Sprintf("Failed to copy package: %v", err))
		st.log.Error("Fetch failed", zap.Error(err))
		return false
	}

	st.enter(StateStaging)
	st.staging = filepath.Join(in.cfg.StagingRoot, in.newStagingName())
	st.log = st.log.With(zap.String("staging", st.staging))
	if _, err := archive.Extract(ctx, st.cache, st.staging, st.out.stdout); err != nil {
		st.out.stderr(fmt.Sprintf("Failed to extract package: %v", err))
		st.log.Error("Extraction failed", zap.Error(err))
		return false
	}
	staged, err := archive.Inventory(st.staging)
	if err != nil {
		st.out.stderr(fmt.Sprintf("Failed to read staged package: %v", err))
		st.log.Error("Inventory failed", zap.Error(err))
		return false
	}
	st.log.Info("Package staged",
		zap.Int("files", len(staged)),
		zap.Int64("bytes", archive.TotalSize(staged)))

	st.enter(StateValidating)
	m, err := manifest.LoadDir(st.staging)
	if err != nil {
		// An unreadable descriptor has no name either.
		st.out.stderr(InvalidNameMessage)
		st.log.Error("Manifest rejected", zap.Error(err))
		return false
	}
	st.log = st.log.With(zap.String("module", m.Name))

	st.enter(StateInstalling)
	stdout, stderr := st.out.sinks()
	stdout = shell.Tee(stdout, backendLog(st.log, "stdout"))
	stderr = shell.Tee(stderr, backendLog(st.log, "stderr"))
	var res shell.Result
	switch kind {
	case KindAPM:
		res = in.runner.Stream(stdout, stderr,
			shell.Quote(in.cfg.APDPath)+" module install "+shell.Quote(st.cache))
	case KindKPM:
		target := paths.KPMTarget(in.cfg.KPMSDir, filepath.Base(st.staging))
		res = in.runner.Stream(stdout, stderr,
			"rm -rf "+shell.Quote(target),
			"cp -rf "+shell.Quote(st.staging)+" "+shell.Quote(target))
	}
	if !res.IsSuccess() {
		st.log.Error("Install command failed", zap.Int("code", res.Code), zap.Error(res.Cause))
		if res.Cause != nil {
			st.out.stderr(fmt.Sprintf("Install did not complete: %v", res.Cause))
		}
		return false
	}
	return true
}

func (in *Installer) finalize(st *install, ok bool) {
	st.enter(StateFinalizing)
	if err := os.Remove(st.cache); err != nil && !errors.Is(err, fs.ErrNotExist) {
		st.log.Warn("Failed to remove cached package", zap.String("path", st.cache), zap.Error(err))
	}
	if ok && st.staging != "" {
		if err := os.RemoveAll(st.staging); err != nil {
			st.log.Warn("Failed to remove staging directory", zap.Error(err))
		}
	}

	if ok {
		st.enter(StateSucceeded)
		st.log.Info("Module installed")
	} else {
		st.enter(StateFailed)
		st.log.Warn("Module install failed")
	}
}

// backendLog records install command output at debug level.
func backendLog(log *logging.Logger, stream string) shell.Sink {
	return shell.SinkFunc(func(line string) {
		log.Debug("Install output", zap.String("stream", stream), zap.String("line", line))
	})
}

func fetch(src io.Reader, dst string) error {
	if src == nil {
		return errors.New("no package content")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
