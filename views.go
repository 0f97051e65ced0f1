package selfref

import "fmt"

// Ref is the built-in shared view: scope-checked read access to a
// payload. Its family is covariant, mirroring a shared reference.
type Ref[T any] struct {
	ptr   *T
	scope Scope
}

// NewRef builds a shared view of the value behind ptr, valid for s.
func NewRef[T any](s Scope, ptr *T) Ref[T] {
	return Ref[T]{ptr: ptr, scope: s}
}

// Scope reports the validity tag the view currently carries.
func (r Ref[T]) Scope() Scope {
	return r.scope
}

// Value copies the viewed value out. It fails once the view's scope has
// ended.
func (r Ref[T]) Value() (T, error) {
	var zero T
	if !r.scope.Alive() {
		return zero, fmt.Errorf("selfref: ref: %w", ErrScopeClosed)
	}
	if r.ptr == nil {
		return zero, fmt.Errorf("selfref: ref has no target")
	}
	return *r.ptr, nil
}

// Deref exposes the underlying alias for the duration of the scope.
func (r Ref[T]) Deref() (*T, error) {
	if !r.scope.Alive() {
		return nil, fmt.Errorf("selfref: ref: %w", ErrScopeClosed)
	}
	return r.ptr, nil
}

type refFamily[T any] struct{}

// RefFamily returns the covariant family of Ref[T] views.
func RefFamily[T any]() Family[Ref[T]] {
	return refFamily[T]{}
}

func (refFamily[T]) Variance() Variance { return Covariant }

func (refFamily[T]) Retag(view Ref[T], s Scope) Ref[T] {
	view.scope = s
	return view
}

func (refFamily[T]) ScopeOf(view Ref[T]) Scope { return view.scope }

// RefMut is the built-in exclusive view: scope-checked read and write
// access. Its family is bivariant, which is what storing it in the
// container's scope-invariant exclusive slot requires.
type RefMut[T any] struct {
	ptr   *T
	scope Scope
}

// NewRefMut builds an exclusive view of the value behind ptr, valid for
// s. The caller must ensure no other view of the same payload is live.
func NewRefMut[T any](s Scope, ptr *T) RefMut[T] {
	return RefMut[T]{ptr: ptr, scope: s}
}

// Scope reports the validity tag the view currently carries.
func (m RefMut[T]) Scope() Scope {
	return m.scope
}

// Get copies the viewed value out.
func (m RefMut[T]) Get() (T, error) {
	var zero T
	if !m.scope.Alive() {
		return zero, fmt.Errorf("selfref: refmut: %w", ErrScopeClosed)
	}
	if m.ptr == nil {
		return zero, fmt.Errorf("selfref: refmut has no target")
	}
	return *m.ptr, nil
}

// Set replaces the viewed value.
func (m RefMut[T]) Set(value T) error {
	if !m.scope.Alive() {
		return fmt.Errorf("selfref: refmut: %w", ErrScopeClosed)
	}
	if m.ptr == nil {
		return fmt.Errorf("selfref: refmut has no target")
	}
	*m.ptr = value
	return nil
}

// Update mutates the viewed value in place through fn.
func (m RefMut[T]) Update(fn func(*T)) error {
	if !m.scope.Alive() {
		return fmt.Errorf("selfref: refmut: %w", ErrScopeClosed)
	}
	if m.ptr == nil {
		return fmt.Errorf("selfref: refmut has no target")
	}
	if fn != nil {
		fn(m.ptr)
	}
	return nil
}

type refMutFamily[T any] struct{}

// RefMutFamily returns the bivariant family of RefMut[T] views.
func RefMutFamily[T any]() Family[RefMut[T]] {
	return refMutFamily[T]{}
}

func (refMutFamily[T]) Variance() Variance { return Bivariant }

func (refMutFamily[T]) Retag(view RefMut[T], s Scope) RefMut[T] {
	view.scope = s
	return view
}

func (refMutFamily[T]) ScopeOf(view RefMut[T]) Scope { return view.scope }

// Owned is a scope-independent view: it copies data out of the payload
// at construction time and never references it again. Its family is
// unvarying, so relabeling is the identity and never checked at use.
type Owned[V any] struct {
	value V
}

// NewOwned wraps an already-copied value as an unvarying view.
func NewOwned[V any](value V) Owned[V] {
	return Owned[V]{value: value}
}

// Value returns the copied data.
func (o Owned[V]) Value() V {
	return o.value
}

type ownedFamily[V any] struct{}

// OwnedFamily returns the unvarying family of Owned[V] views.
func OwnedFamily[V any]() Family[Owned[V]] {
	return ownedFamily[V]{}
}

func (ownedFamily[V]) Variance() Variance { return Unvarying }

func (ownedFamily[V]) Retag(view Owned[V], _ Scope) Owned[V] { return view }

func (ownedFamily[V]) ScopeOf(Owned[V]) Scope { return Scope{} }

// Option is a view-shaped optional used to derive capabilities over
// payloads that may be absent: "no value" maps to "no view".
type Option[V any] struct {
	value V
	some  bool
}

// Some wraps a present view.
func Some[V any](value V) Option[V] {
	return Option[V]{value: value, some: true}
}

// None is the absent view.
func None[V any]() Option[V] {
	return Option[V]{}
}

// IsSome reports whether a view is present.
func (o Option[V]) IsSome() bool {
	return o.some
}

// Get returns the wrapped view and whether it is present.
func (o Option[V]) Get() (V, bool) {
	return o.value, o.some
}

type optionFamily[V any] struct {
	inner Family[V]
}

// OptionFamily derives the family of Option[V] views from the family of
// V views. Variance follows the inner family; the absent view carries
// no tag.
func OptionFamily[V any](inner Family[V]) Family[Option[V]] {
	return optionFamily[V]{inner: inner}
}

func (f optionFamily[V]) Variance() Variance {
	if f.inner == nil {
		return Unvarying
	}
	return f.inner.Variance()
}

func (f optionFamily[V]) Retag(view Option[V], s Scope) Option[V] {
	if !view.some || f.inner == nil {
		return view
	}
	view.value = f.inner.Retag(view.value, s)
	return view
}

func (f optionFamily[V]) ScopeOf(view Option[V]) Scope {
	if !view.some || f.inner == nil {
		return Scope{}
	}
	return f.inner.ScopeOf(view.value)
}

// Probe hands the variance assertion a present view, since the zero
// Option is absent and carries no tag to exercise.
func (f optionFamily[V]) Probe() Option[V] {
	if ap, ok := f.inner.(AssertionProbe[V]); ok {
		return Some(ap.Probe())
	}
	var inner V
	return Some(inner)
}
