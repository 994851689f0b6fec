package shell

import "sync"

// Lines collects lines. It is safe for concurrent use.
type Lines struct {
	mu    sync.Mutex
	lines []string
}

// OnLine implements Sink.
func (l *Lines) OnLine(line string) {
	l.mu.Lock()
	l.lines = append(l.lines, line)
	l.mu.Unlock()
}

// All returns a copy of the collected lines.
func (l *Lines) All() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}
