package selfref

import (
	"errors"
	"fmt"
)

// ErrConsumed reports an operation on a container whose payload was
// already extracted via IntoInner.
var ErrConsumed = errors.New("selfref: container payload already extracted")

// ErrScopeClosed reports a view used after its validity scope ended.
var ErrScopeClosed = errors.New("selfref: validity scope has ended")

// ErrErasedScope reports a reinterpretation that crossed the erased tag
// through the scope-to-scope primitive instead of Erase/Restore.
var ErrErasedScope = errors.New("selfref: erased scope tags require Erase/Restore")

// ErrWrongDirection reports a relabeling the family's variance
// classification does not permit.
var ErrWrongDirection = errors.New("selfref: relabeling direction not permitted by variance")

// ErrOutOfBounds reports a target scope outside a bounded family's
// instantiation window.
var ErrOutOfBounds = errors.New("selfref: target scope outside family bounds")

// StateError captures a structural-state violation: an operation issued
// while the container is in a state that forbids it. The container's
// state is never modified by a rejected operation.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("selfref: %s requires an empty container, state=%s", e.Op, e.State)
}

// ProofError captures a variance assertion failure for one concrete
// family instantiation. It is a programmer error in the family
// implementation, discovered once per concrete type.
type ProofError struct {
	Family   string
	View     string
	Variance Variance
	Err      error
}

func (e *ProofError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("selfref: %s assertion failed for %s over %s: %v", e.Variance, e.Family, e.View, e.Err)
}

func (e *ProofError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapStateError(op string, state State, consumed bool) error {
	if consumed {
		return fmt.Errorf("selfref: %s: %w", op, ErrConsumed)
	}
	return &StateError{Op: op, State: state}
}
