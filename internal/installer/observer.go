package installer

import (
	"sync"

	"github.com/GriffinCanCode/apcore/internal/shell"
)

// Observer receives install progress.
type Observer interface {
	OnStdout(line string)
	OnStderr(line string)
	OnFinish(success bool)
}

// Funcs adapts plain functions to an Observer. Nil fields are ignored.
type Funcs struct {
	Stdout func(line string)
	Stderr func(line string)
	Finish func(success bool)
}

// OnStdout implements Observer.
func (f Funcs) OnStdout(line string) {
	if f.Stdout != nil {
		f.Stdout(line)
	}
}

// OnStderr implements Observer.
func (f Funcs) OnStderr(line string) {
	if f.Stderr != nil {
		f.Stderr(line)
	}
}

// OnFinish implements Observer.
func (f Funcs) OnFinish(success bool) {
	if f.Finish != nil {
		f.Finish(success)
	}
}

// reporter serializes observer calls and guarantees a single OnFinish.
type reporter struct {
	mu       sync.Mutex
	obs      Observer
	finished bool
}

func newReporter(obs Observer) *reporter {
	if obs == nil {
		obs = Funcs{}
	}
	return &reporter{obs: obs}
}

func (r *reporter) stdout(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs.OnStdout(line)
}

func (r *reporter) stderr(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs.OnStderr(line)
}

func (r *reporter) finish(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.finished = true
	r.obs.OnFinish(success)
}

func (r *reporter) sinks() (shell.Sink, shell.Sink) {
	return shell.SinkFunc(r.stdout), shell.SinkFunc(r.stderr)
}
