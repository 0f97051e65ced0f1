package selfref

// Family describes a view type parameterized by a validity scope. It is
// the nominal-typing rendition of a scope-indexed type family: one
// concrete Go type stands in for the whole family, and the scope tag is
// carried inside the view value instead of in the type.
//
// Implementations MUST treat Retag as a pure relabeling: the returned
// view may differ from the input only in its scope tag. Everything else
// about the family's variance claim is validated by NewProof.
type Family[V any] interface {
	// Variance reports the reinterpretation direction the family claims
	// to support.
	Variance() Variance

	// Retag returns view carrying scope s in place of its current tag.
	Retag(view V, s Scope) V

	// ScopeOf reports the scope tag view currently carries. Unvarying
	// families report the zero Scope.
	ScopeOf(view V) Scope
}

// AssertionProbe optionally supplies the sample value the variance
// assertion exercises. Families whose zero view legitimately carries no
// scope tag (a derived optional family's absent view, for instance)
// implement this so the assertion sees a tagged instance.
type AssertionProbe[V any] interface {
	Probe() V
}

// BoundedFamily is a Family constrained to a window of concrete scopes.
// A zero lower bound means "no lower bound"; a zero upper bound means
// "no upper bound". Proof-gated reinterpretation rejects target scopes
// outside the window.
type BoundedFamily[V any] interface {
	Family[V]

	Bounds() (lower, upper Scope)
}
