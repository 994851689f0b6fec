package shell

// Sink receives output lines of a job as they are produced.
type Sink interface {
	OnLine(line string)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(line string)

// OnLine implements Sink.
func (f SinkFunc) OnLine(line string) { f(line) }

// Tee fans each line out to every non-nil sink, in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(line string) {
		for _, s := range sinks {
			if s != nil {
				s.OnLine(line)
			}
		}
	})
}
