// Package console attaches the local terminal to an interactive shell
// started with the same mechanism as the current session.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/GriffinCanCode/apcore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/apcore/internal/shared/paths"
	"github.com/GriffinCanCode/apcore/internal/shell"
	"github.com/creack/pty"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// ErrNoShell is returned when the mechanism has nothing to run.
var ErrNoShell = errors.New("console: no shell available")

const (
	defaultCols = 80
	defaultRows = 24
)

// Console runs one interactive shell under a PTY.
type Console struct {
	mechanism shell.Mechanism
	stdin     *os.File
	stdout    io.Writer
	input     io.Reader
	logger    *logging.Logger
}

// New creates a console for the given mechanism wired to the process's
// standard streams.
func New(m shell.Mechanism, logger *logging.Logger) *Console {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Console{
		mechanism: m,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		input:     os.Stdin,
		logger:    logger.Named("console"),
	}
}

// WithIO replaces the input and output streams. Raw mode and resize
// forwarding only apply when in is a terminal.
func (c *Console) WithIO(in io.Reader, out io.Writer) *Console {
	c.input = in
	c.stdout = out
	c.stdin = nil
	if f, ok := in.(*os.File); ok {
		c.stdin = f
	}
	return c
}

// Run starts the shell and copies I/O until it exits.
func (c *Console) Run(ctx context.Context) error {
	if len(c.mechanism.Argv) == 0 {
		return ErrNoShell
	}

	cmd := exec.CommandContext(ctx, c.mechanism.Argv[0], c.mechanism.Argv[1:]...)
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"PATH="+os.Getenv("PATH")+":"+strings.Join(paths.ExtraBinDirs, ":"),
	)

	ptmx, err := pty.StartWithSize(cmd, c.size())
	if err != nil {
		return fmt.Errorf("start %s: %w", c.mechanism.Binary(), err)
	}
	defer ptmx.Close()
	c.logger.Info("Console started", zap.String("mechanism", c.mechanism.Name), zap.Int("pid", cmd.Process.Pid))

	if c.isTerminal() {
		fd := int(c.stdin.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, state) }()

		stop := c.forwardResize(ptmx)
		defer stop()
	}

	go func() {
		_, _ = io.Copy(ptmx, c.input)
	}()
	// The master side reports EIO once the shell exits.
	if _, err := io.Copy(c.stdout, ptmx); err != nil && !errors.Is(err, syscall.EIO) {
		c.logger.Debug("Console output ended", zap.Error(err))
	}

	err = cmd.Wait()
	c.logger.Info("Console exited", zap.Error(err))
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func (c *Console) isTerminal() bool {
	return c.stdin != nil && term.IsTerminal(int(c.stdin.Fd()))
}

func (c *Console) size() *pty.Winsize {
	if c.isTerminal() {
		if cols, rows, err := term.GetSize(int(c.stdin.Fd())); err == nil {
			return &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}
		}
	}
	return &pty.Winsize{Cols: defaultCols, Rows: defaultRows}
}

func (c *Console) forwardResize(ptmx *os.File) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	go func() {
		for range ch {
			if err := pty.InheritSize(c.stdin, ptmx); err != nil {
				c.logger.Debug("Resize failed", zap.Error(err))
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(ch)
	}
}
