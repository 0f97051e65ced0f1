package selfref

import "time"

// TransitionLogEvent describes one container state transition attempt.
type TransitionLogEvent struct {
	Op       string
	From     State
	To       State
	Duration time.Duration
	Err      error
}

// TransitionLogger records container transitions.
type TransitionLogger interface {
	LogTransition(TransitionLogEvent)
}

// TransitionLoggerFunc adapts a function to TransitionLogger.
type TransitionLoggerFunc func(TransitionLogEvent)

// LogTransition implements TransitionLogger.
func (f TransitionLoggerFunc) LogTransition(event TransitionLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopTransitionLogger struct{}

func (noopTransitionLogger) LogTransition(TransitionLogEvent) {}

// WithTransitionLogger attaches a transition logger to the container.
func WithTransitionLogger(logger TransitionLogger) ContainerOption {
	return func(cfg *containerConfig) {
		if logger == nil {
			cfg.logger = noopTransitionLogger{}
			return
		}
		cfg.logger = logger
	}
}
