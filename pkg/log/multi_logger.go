package log

// MultiLogger fans one event out to several sinks, typically a
// FileLogger for capture plus a SlogAdapter for live debugging.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger builds a MultiLogger over the given sinks.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log delivers the event to every sink in order.
func (m *MultiLogger) Log(event Event) {
	for _, sink := range m.sinks {
		sink.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
