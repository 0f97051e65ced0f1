package selfref

import "fmt"

// Capability describes, for a payload type T, what its borrowed views
// look like: the shared and exclusive view constructors and the
// families those views belong to. It is a parameter object rather than
// an interface on T so that capabilities can be composed and supplied
// for types the caller does not own.
type Capability[T, S, E any] struct {
	// Shared computes a shared view of the payload at the given scope.
	// It must not retain any ability to mutate through the result and
	// must be safe to call repeatedly.
	Shared func(Scope, *T) S

	// Exclusive computes an exclusive view of the payload at the given
	// scope. It may be called only while no other view of the same
	// payload is live; the container enforces this structurally.
	Exclusive func(Scope, *T) E

	// SharedFamily is the family the shared views belong to. It must
	// support narrowing (covariant or bivariant) or be unvarying.
	SharedFamily Family[S]

	// ExclusiveFamily is the family the exclusive views belong to. The
	// exclusive slot is scope-invariant, so the family must be
	// bivariant or unvarying.
	ExclusiveFamily Family[E]
}

// Validate reports whether the capability is fully populated and its
// families carry classifications the container slots can accept.
func (c Capability[T, S, E]) Validate() error {
	if c.Shared == nil {
		return fmt.Errorf("selfref: capability missing shared view constructor")
	}
	if c.Exclusive == nil {
		return fmt.Errorf("selfref: capability missing exclusive view constructor")
	}
	if c.SharedFamily == nil {
		return fmt.Errorf("selfref: capability missing shared family")
	}
	if c.ExclusiveFamily == nil {
		return fmt.Errorf("selfref: capability missing exclusive family")
	}
	if v := c.SharedFamily.Variance(); !v.permitsNarrowing() && v != Unvarying {
		return fmt.Errorf("selfref: shared family is %s, want covariant, bivariant or unvarying", v)
	}
	if v := c.ExclusiveFamily.Variance(); v != Bivariant && v != Unvarying {
		return fmt.Errorf("selfref: exclusive family is %s, want bivariant or unvarying", v)
	}
	return nil
}

// RefCapability is the ready-made capability for any payload type,
// using the built-in Ref and RefMut view families.
func RefCapability[T any]() Capability[T, Ref[T], RefMut[T]] {
	return Capability[T, Ref[T], RefMut[T]]{
		Shared: func(s Scope, ptr *T) Ref[T] {
			return NewRef(s, ptr)
		},
		Exclusive: func(s Scope, ptr *T) RefMut[T] {
			return NewRefMut(s, ptr)
		},
		SharedFamily:    RefFamily[T](),
		ExclusiveFamily: RefMutFamily[T](),
	}
}

// OwnedCapability views any payload by copying it out, making both view
// families scope-independent. Mutations through the exclusive view are
// lost; it exists for payloads that only ever need read snapshots.
func OwnedCapability[T any]() Capability[T, Owned[T], Owned[T]] {
	snapshot := func(_ Scope, ptr *T) Owned[T] {
		var value T
		if ptr != nil {
			value = *ptr
		}
		return NewOwned(value)
	}
	return Capability[T, Owned[T], Owned[T]]{
		Shared:          snapshot,
		Exclusive:       snapshot,
		SharedFamily:    OwnedFamily[T](),
		ExclusiveFamily: OwnedFamily[T](),
	}
}

// OptionCapability derives a capability for an optional payload (*T)
// from the capability of T: a nil payload yields absent views, a
// present payload yields the inner views. Capability conformance is
// compositional over common container shapes.
func OptionCapability[T, S, E any](inner Capability[T, S, E]) Capability[*T, Option[S], Option[E]] {
	return Capability[*T, Option[S], Option[E]]{
		Shared: func(s Scope, ptr **T) Option[S] {
			if ptr == nil || *ptr == nil {
				return None[S]()
			}
			return Some(inner.Shared(s, *ptr))
		},
		Exclusive: func(s Scope, ptr **T) Option[E] {
			if ptr == nil || *ptr == nil {
				return None[E]()
			}
			return Some(inner.Exclusive(s, *ptr))
		},
		SharedFamily:    OptionFamily(inner.SharedFamily),
		ExclusiveFamily: OptionFamily(inner.ExclusiveFamily),
	}
}
