package selfref

import "github.com/goliatone/go-selfref/pkg/activity"

// ContainerOption configures a Container at construction time.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	logger   TransitionLogger
	emitter  *activity.Emitter
	recorder TransitionRecorder
	id       string
}

func applyContainerOptions(opts []ContainerOption) containerConfig {
	cfg := containerConfig{logger: noopTransitionLogger{}}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}

// WithActivityEmitter attaches a lifecycle event emitter to the container.
func WithActivityEmitter(emitter *activity.Emitter) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.emitter = emitter
	}
}

// WithContainerID sets the identifier reported in lifecycle events and
// transition records.
func WithContainerID(id string) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.id = id
	}
}

// TransitionRecorder observes applied and rejected transitions. The
// inspect package provides a trace-recording implementation.
type TransitionRecorder interface {
	RecordTransition(containerID, op string, from, to State, err error)
}

// WithRecorder attaches a transition recorder to the container.
func WithRecorder(recorder TransitionRecorder) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.recorder = recorder
	}
}
