package selfref

// Alloc is an owned heap allocation whose payload address is stable
// across moves and copies of the handle, and which tolerates
// outstanding raw aliases to the payload across such moves. It differs
// from holding a plain pointer only in intent: the handle owns the
// payload, and both accessors are explicit about the aliasing they
// introduce.
type Alloc[T any] struct {
	payload *T
}

// NewAlloc takes ownership of value and places it at a stable address.
func NewAlloc[T any](value T) Alloc[T] {
	return Alloc[T]{payload: &value}
}

// Shared returns a raw shared alias of the payload. Obtaining it does
// not invalidate previously obtained aliases, and it stays usable when
// the handle is subsequently copied or moved.
func (a Alloc[T]) Shared() *T {
	return a.payload
}

// Exclusive returns a raw exclusive alias of the payload. Exclusivity
// is a contract with the caller, not a checked property; the container
// layer makes it checked.
func (a Alloc[T]) Exclusive() *T {
	return a.payload
}

// IntoInner consumes the allocation and yields the payload by value.
// The caller must ensure no raw alias obtained from Shared or Exclusive
// is used afterward; at this layer the precondition is documented, not
// enforced.
func (a Alloc[T]) IntoInner() T {
	if a.payload == nil {
		var zero T
		return zero
	}
	return *a.payload
}
