package selfref

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/goliatone/go-selfref/internal/probe"
)

// Proof licenses scope reinterpretation for one concrete view family.
// Constructing it runs the family's variance assertion; a Proof that
// was handed out without error may relabel freely for the rest of the
// process. The zero Proof licenses nothing.
type Proof[V any] struct {
	family   Family[V]
	variance Variance
}

type proofKey struct {
	family reflect.Type
	view   reflect.Type
}

// Assertion outcomes are memoized per concrete (family, view) pair so
// the check runs once per instantiation rather than once per call. The
// outcome is idempotent: a passing pair never later fails.
var assertionOutcomes sync.Map

// NewProof validates f's variance claim for its concrete instantiation
// and returns the proof token. Failure means the family implementation
// is wrong, not that the caller's data is; it surfaces as a *ProofError.
func NewProof[V any](f Family[V]) (Proof[V], error) {
	if f == nil {
		return Proof[V]{}, fmt.Errorf("selfref: family must not be nil")
	}
	key := proofKey{family: reflect.TypeOf(f), view: probe.TypeOf[V]()}
	if cached, ok := assertionOutcomes.Load(key); ok {
		if cached != nil {
			return Proof[V]{}, cached.(error)
		}
		return Proof[V]{family: f, variance: f.Variance()}, nil
	}
	err := runAssertions(f)
	if err != nil {
		err = &ProofError{
			Family:   probe.TypeName(f),
			View:     probe.TypeOf[V]().String(),
			Variance: f.Variance(),
			Err:      err,
		}
		assertionOutcomes.Store(key, err)
		return Proof[V]{}, err
	}
	assertionOutcomes.Store(key, nil)
	return Proof[V]{family: f, variance: f.Variance()}, nil
}

// MustProof is NewProof for families known statically to be sound, such
// as the built-in ones. It panics on assertion failure.
func MustProof[V any](f Family[V]) Proof[V] {
	proof, err := NewProof(f)
	if err != nil {
		panic(err)
	}
	return proof
}

func runAssertions[V any](f Family[V]) error {
	if bf, ok := f.(BoundedFamily[V]); ok {
		lower, upper := bf.Bounds()
		if !lower.IsErased() && !upper.IsErased() && !upper.Outlives(lower) {
			return fmt.Errorf("instantiation bounds are inverted")
		}
	}

	sample := probe.Sample[V]()
	if ap, ok := f.(AssertionProbe[V]); ok {
		sample = ap.Probe()
	}
	root := OpenScope()
	defer root.Close()
	child := root.Enter()
	defer child.Close()
	outer, inner := root.Scope(), child.Scope()

	if f.Variance() == Unvarying {
		if !f.ScopeOf(sample).IsErased() {
			return fmt.Errorf("unvarying family reports a scope tag")
		}
		if !probe.Equal(f.Retag(sample, outer), sample) {
			return fmt.Errorf("unvarying family's relabeling is not the identity")
		}
		return nil
	}

	origin := f.ScopeOf(sample)
	tagged := f.Retag(sample, outer)
	if f.ScopeOf(tagged) != outer {
		return fmt.Errorf("relabeling does not update the scope tag")
	}
	retagged := f.Retag(tagged, inner)
	if f.ScopeOf(retagged) != inner {
		return fmt.Errorf("repeated relabeling does not update the scope tag")
	}
	if !probe.Equal(f.Retag(retagged, origin), sample) {
		return fmt.Errorf("relabeling altered the view beyond its scope tag")
	}
	return nil
}

// Variance reports the direction this proof licenses.
func (p Proof[V]) Variance() Variance {
	return p.variance
}

// Valid reports whether the proof was constructed via NewProof.
func (p Proof[V]) Valid() bool {
	return p.family != nil
}

// Reinterpret relabels view with the target scope. This is the single
// checked relabeling primitive: the direction must be permitted by the
// family's variance, both tags must be concrete (use Erase/Restore to
// cross the erased tag), the target must still be alive, and bounded
// families reject targets outside their window.
func (p Proof[V]) Reinterpret(view V, to Scope) (V, error) {
	var zero V
	if p.family == nil {
		return zero, fmt.Errorf("selfref: proof was not constructed")
	}
	if p.variance == Unvarying {
		return view, nil
	}
	from := p.family.ScopeOf(view)
	if from.IsErased() || to.IsErased() {
		return zero, fmt.Errorf("selfref: reinterpret: %w", ErrErasedScope)
	}
	if !to.Alive() {
		return zero, fmt.Errorf("selfref: reinterpret: %w", ErrScopeClosed)
	}
	switch {
	case from.Outlives(to) && p.variance.permitsNarrowing():
	case to.Outlives(from) && p.variance.permitsWidening():
	default:
		return zero, fmt.Errorf("selfref: reinterpret %s: %w", p.variance, ErrWrongDirection)
	}
	if err := p.checkBounds(to); err != nil {
		return zero, err
	}
	return p.family.Retag(view, to), nil
}

// Erase discards the view's scope tag for storage. The result carries
// no validity claim; the burden of restoring a truthful tag before the
// view is next used falls on the caller.
func (p Proof[V]) Erase(view V) V {
	if p.family == nil || p.variance == Unvarying {
		return view
	}
	return p.family.Retag(view, Scope{})
}

// Restore reattaches a concrete scope tag to an erased view. The target
// must be alive and, for bounded families, inside the instantiation
// window; the claim that the view's backing data really is valid for
// the target scope remains the caller's.
func (p Proof[V]) Restore(view V, to Scope) (V, error) {
	var zero V
	if p.family == nil {
		return zero, fmt.Errorf("selfref: proof was not constructed")
	}
	if p.variance == Unvarying {
		return view, nil
	}
	if !p.family.ScopeOf(view).IsErased() {
		return zero, fmt.Errorf("selfref: restore requires an erased view")
	}
	if to.IsErased() {
		return zero, fmt.Errorf("selfref: restore: %w", ErrErasedScope)
	}
	if !to.Alive() {
		return zero, fmt.Errorf("selfref: restore: %w", ErrScopeClosed)
	}
	if err := p.checkBounds(to); err != nil {
		return zero, err
	}
	return p.family.Retag(view, to), nil
}

func (p Proof[V]) checkBounds(to Scope) error {
	bf, ok := p.family.(BoundedFamily[V])
	if !ok {
		return nil
	}
	lower, upper := bf.Bounds()
	if !lower.IsErased() && !to.Outlives(lower) {
		return fmt.Errorf("selfref: %w", ErrOutOfBounds)
	}
	if !upper.IsErased() && !upper.Outlives(to) {
		return fmt.Errorf("selfref: %w", ErrOutOfBounds)
	}
	return nil
}
