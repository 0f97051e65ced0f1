package selfref

import (
	"context"
	"time"

	"github.com/goliatone/go-selfref/pkg/activity"
)

// State reports which kind of view, if any, the container's erased slot
// currently holds.
type State uint8

const (
	StateEmpty State = iota
	StateHoldingShared
	StateHoldingExclusive
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateHoldingShared:
		return "holding-shared"
	case StateHoldingExclusive:
		return "holding-exclusive"
	default:
		return "unknown"
	}
}

// Container owns a payload on a stable heap allocation and holds, in an
// erased form, at most one derived view of that payload. A new borrow
// is only accepted while the slot is empty, which is what keeps one
// exclusive view from ever coexisting with another view.
//
// A container belongs to one logical owner at a time; it performs no
// internal locking.
type Container[T, S, E any] struct {
	payload    Alloc[T]
	capability Capability[T, S, E]

	sharedProof    Proof[S]
	exclusiveProof Proof[E]

	// loan backs every scope handed out for the installed view; bumping
	// its generation on Clear retires all of them at once.
	loan scopeCell

	state     State
	shared    S
	exclusive E
	consumed  bool

	borrows uint64
	clears  uint64

	cfg containerConfig
}

// Snapshot reports the container's observable condition for diagnostics
// and test harnesses.
type Snapshot struct {
	State          State
	Consumed       bool
	LoanGeneration uint64
	Borrows        uint64
	Clears         uint64
}

// New constructs a container owning payload, with capability describing what
// its borrowed views look like. Both view families have their variance
// assertions run here (once per concrete instantiation); a failed
// assertion is a bug in the family implementation and surfaces as a
// *ProofError.
func New[T, S, E any](payload T, capability Capability[T, S, E], opts ...ContainerOption) (*Container[T, S, E], error) {
	if err := capability.Validate(); err != nil {
		return nil, err
	}
	sharedProof, err := NewProof(capability.SharedFamily)
	if err != nil {
		return nil, err
	}
	exclusiveProof, err := NewProof(capability.ExclusiveFamily)
	if err != nil {
		return nil, err
	}
	return &Container[T, S, E]{
		payload:        NewAlloc(payload),
		capability:     capability,
		sharedProof:    sharedProof,
		exclusiveProof: exclusiveProof,
		cfg:            applyContainerOptions(opts),
	}, nil
}

// NewRefContainer constructs a container over payload using the
// built-in Ref and RefMut view families.
func NewRefContainer[T any](payload T, opts ...ContainerOption) (*Container[T, Ref[T], RefMut[T]], error) {
	return New(payload, RefCapability[T](), opts...)
}

// State reports the current slot state.
func (c *Container[T, S, E]) State() State {
	return c.state
}

// Inspect returns a diagnostics snapshot of the container.
func (c *Container[T, S, E]) Inspect() Snapshot {
	return Snapshot{
		State:          c.state,
		Consumed:       c.consumed,
		LoanGeneration: c.loan.gen,
		Borrows:        c.borrows,
		Clears:         c.clears,
	}
}

// loanScope mints a scope bounded by the container's next Clear.
func (c *Container[T, S, E]) loanScope() Scope {
	return Scope{cell: &c.loan, gen: c.loan.gen}
}

// BorrowShared computes a shared view of the payload, stores it in the
// slot with its scope erased, and returns the view relabeled for a
// scope that ends at the next Clear. Rejected unless the slot is empty.
func (c *Container[T, S, E]) BorrowShared() (S, error) {
	var zero S
	start := time.Now()
	if c.consumed || c.state != StateEmpty {
		err := wrapStateError("borrow_shared", c.state, c.consumed)
		c.reject("borrow_shared", err, start)
		return zero, err
	}

	view := c.capability.Shared(c.loanScope(), c.payload.Shared())
	c.shared = c.sharedProof.Erase(view)
	restored, err := c.sharedProof.Restore(c.shared, c.loanScope())
	if err != nil {
		c.shared = zero
		c.reject("borrow_shared", err, start)
		return zero, err
	}
	c.state = StateHoldingShared
	c.borrows++
	c.applied("borrow_shared", StateEmpty, start)
	c.emitInstalled("shared")
	return restored, nil
}

// BorrowExclusive computes an exclusive view of the payload, stores it
// erased, and returns it relabeled for a scope that ends at the next
// Clear. Rejected unless the slot is empty.
func (c *Container[T, S, E]) BorrowExclusive() (E, error) {
	var zero E
	start := time.Now()
	if c.consumed || c.state != StateEmpty {
		err := wrapStateError("borrow_exclusive", c.state, c.consumed)
		c.reject("borrow_exclusive", err, start)
		return zero, err
	}

	view := c.capability.Exclusive(c.loanScope(), c.payload.Exclusive())
	c.exclusive = c.exclusiveProof.Erase(view)
	restored, err := c.exclusiveProof.Restore(c.exclusive, c.loanScope())
	if err != nil {
		c.exclusive = zero
		c.reject("borrow_exclusive", err, start)
		return zero, err
	}
	c.state = StateHoldingExclusive
	c.borrows++
	c.applied("borrow_exclusive", StateEmpty, start)
	c.emitInstalled("exclusive")
	return restored, nil
}

// Clear drops the stored view and retires every scope handed out for
// it. Always succeeds; afterward the payload may be accessed directly
// again.
func (c *Container[T, S, E]) Clear() {
	start := time.Now()
	from := c.state
	c.loan.gen++
	var zeroShared S
	var zeroExclusive E
	c.shared = zeroShared
	c.exclusive = zeroExclusive
	c.state = StateEmpty
	if from != StateEmpty {
		c.clears++
		c.applied("clear", from, start)
		c.emit(activity.BuildViewClearedEvent(c.transitionInput(from.String(), StateEmpty.String(), nil)))
	}
}

// WithShared installs a shared view, passes it to fn, and clears the
// slot when fn returns. The view stops working past the call because
// Clear retires its scope.
func (c *Container[T, S, E]) WithShared(fn func(S) error) error {
	view, err := c.BorrowShared()
	if err != nil {
		return err
	}
	defer c.Clear()
	if fn == nil {
		return nil
	}
	return fn(view)
}

// WithExclusive installs an exclusive view, passes it to fn, and clears
// the slot when fn returns.
func (c *Container[T, S, E]) WithExclusive(fn func(E) error) error {
	view, err := c.BorrowExclusive()
	if err != nil {
		return err
	}
	defer c.Clear()
	if fn == nil {
		return nil
	}
	return fn(view)
}

// IntoInner extracts the payload by value. Permitted only from the
// empty state: extracting while a view exists would leave that view
// dangling. The container is consumed on success; later operations
// report ErrConsumed.
func (c *Container[T, S, E]) IntoInner() (T, error) {
	var zero T
	start := time.Now()
	if c.consumed || c.state != StateEmpty {
		err := wrapStateError("into_inner", c.state, c.consumed)
		c.reject("into_inner", err, start)
		return zero, err
	}
	c.consumed = true
	c.loan.gen++
	c.applied("into_inner", StateEmpty, start)
	c.emit(activity.BuildPayloadExtractedEvent(c.transitionInput(StateEmpty.String(), StateEmpty.String(), nil)))
	return c.payload.IntoInner(), nil
}

func (c *Container[T, S, E]) applied(op string, from State, start time.Time) {
	c.logger().LogTransition(TransitionLogEvent{
		Op:       op,
		From:     from,
		To:       c.state,
		Duration: time.Since(start),
	})
	if c.cfg.recorder != nil {
		c.cfg.recorder.RecordTransition(c.cfg.id, op, from, c.state, nil)
	}
}

func (c *Container[T, S, E]) reject(op string, err error, start time.Time) {
	c.logger().LogTransition(TransitionLogEvent{
		Op:       op,
		From:     c.state,
		To:       c.state,
		Duration: time.Since(start),
		Err:      err,
	})
	if c.cfg.recorder != nil {
		c.cfg.recorder.RecordTransition(c.cfg.id, op, c.state, c.state, err)
	}
	c.emit(activity.BuildViolationEvent(op, c.transitionInput(c.state.String(), c.state.String(), err)))
}

func (c *Container[T, S, E]) emitInstalled(kind string) {
	c.emit(activity.BuildViewInstalledEvent(kind, c.transitionInput(StateEmpty.String(), c.state.String(), nil)))
}

func (c *Container[T, S, E]) transitionInput(from, to string, err error) activity.TransitionInput {
	return activity.TransitionInput{
		ContainerID: c.cfg.id,
		FromState:   from,
		ToState:     to,
		Err:         err,
	}
}

func (c *Container[T, S, E]) emit(event activity.Event) {
	if c.cfg.emitter == nil || !c.cfg.emitter.Enabled() {
		return
	}
	// Emission failures are hook-side concerns; transitions never fail
	// because a hook did.
	_ = c.cfg.emitter.Emit(context.Background(), event)
}

func (c *Container[T, S, E]) logger() TransitionLogger {
	if c.cfg.logger == nil {
		return noopTransitionLogger{}
	}
	return c.cfg.logger
}
