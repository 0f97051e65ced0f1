package selfref

// Variance classifies how a view family's scope tag may be
// reinterpreted. The classification is a claim made by the family
// implementor; it is validated once per concrete instantiation when a
// Proof is constructed.
type Variance uint8

const (
	// Covariant families permit narrowing the scope tag: a view built
	// for a long scope may be relabeled for any shorter one.
	Covariant Variance = iota
	// Contravariant families permit widening the scope tag.
	Contravariant
	// Bivariant families permit both directions, which is required when
	// the family is stored in a syntactically scope-invariant position
	// such as an exclusive slot.
	Bivariant
	// Unvarying families do not use the scope at all; relabeling is the
	// identity and needs no runtime assertion.
	Unvarying
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	case Bivariant:
		return "bivariant"
	case Unvarying:
		return "unvarying"
	default:
		return "unknown"
	}
}

// permitsNarrowing reports whether the classification allows relabeling
// toward a shorter scope.
func (v Variance) permitsNarrowing() bool {
	return v == Covariant || v == Bivariant
}

// permitsWidening reports whether the classification allows relabeling
// toward a longer scope.
func (v Variance) permitsWidening() bool {
	return v == Contravariant || v == Bivariant
}
