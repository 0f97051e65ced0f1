package inspect

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	selfref "github.com/goliatone/go-selfref"
)

// Recorder is an append-only transition trace. It satisfies
// selfref.TransitionRecorder, so it can be wired into a container via
// selfref.WithRecorder. The mutex only guards the trace itself; the
// containers feeding it remain single-owner.
type Recorder struct {
	mu    sync.Mutex
	trace []Transition
}

// NewRecorder constructs an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordTransition implements selfref.TransitionRecorder.
func (r *Recorder) RecordTransition(containerID, op string, from, to selfref.State, err error) {
	if r == nil {
		return
	}
	entry := Transition{
		ID:          uuid.NewString(),
		ContainerID: containerID,
		Op:          op,
		From:        from.String(),
		To:          to.String(),
		Rejected:    err != nil,
		OccurredAt:  time.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	r.mu.Lock()
	r.trace = append(r.trace, entry)
	r.mu.Unlock()
}

// Trace returns a copy of the recorded transitions.
func (r *Recorder) Trace() []Transition {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.trace) == 0 {
		return nil
	}
	out := make([]Transition, len(r.trace))
	copy(out, r.trace)
	return out
}

// Len reports the number of recorded transitions.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trace)
}

// Reset discards the recorded trace.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.trace = nil
	r.mu.Unlock()
}

// Context builds a CheckContext over the current trace.
func (r *Recorder) Context() CheckContext {
	return CheckContext{Trace: r.Trace()}
}

// TraceJSON serialises the trace into JSON for logging or transport.
func (r *Recorder) TraceJSON() ([]byte, error) {
	return json.Marshal(r.Trace())
}

// TraceFromJSON deserialises a trace previously produced by TraceJSON.
func TraceFromJSON(payload []byte) ([]Transition, error) {
	var trace []Transition
	if err := json.Unmarshal(payload, &trace); err != nil {
		return nil, err
	}
	return trace, nil
}
