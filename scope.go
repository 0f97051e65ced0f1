package selfref

// scopeCell is the shared mutable backing for every Scope minted by one
// guard. Closing the guard bumps gen, which retires all scopes minted at
// the previous generation in one step; the cell can then mint scopes for
// a fresh generation.
type scopeCell struct {
	gen       uint64
	parent    *scopeCell
	parentGen uint64
}

func (c *scopeCell) alive(gen uint64) bool {
	for c != nil {
		if c.gen != gen {
			return false
		}
		gen = c.parentGen
		c = c.parent
	}
	return true
}

// ScopeGuard owns an open validity scope. Closing the guard is the only
// legal way to end the scope; every Scope minted from it (and from any
// descendant guard) stops being alive at that point.
type ScopeGuard struct {
	cell   *scopeCell
	gen    uint64
	closed bool
}

// OpenScope opens a root validity scope.
func OpenScope() *ScopeGuard {
	cell := &scopeCell{}
	return &ScopeGuard{cell: cell, gen: cell.gen}
}

// Enter opens a child scope outlived by g. Returns nil when g is closed.
func (g *ScopeGuard) Enter() *ScopeGuard {
	if g == nil || g.closed {
		return nil
	}
	cell := &scopeCell{parent: g.cell, parentGen: g.gen}
	return &ScopeGuard{cell: cell, gen: cell.gen}
}

// Close ends the scope. Idempotent; closing a guard also retires every
// scope opened under it via Enter.
func (g *ScopeGuard) Close() {
	if g == nil || g.closed {
		return
	}
	g.closed = true
	g.cell.gen++
}

// Closed reports whether the guard was closed.
func (g *ScopeGuard) Closed() bool {
	return g == nil || g.closed
}

// Scope returns the validity tag for this guard. The returned value is
// the zero Scope when the guard is already closed.
func (g *ScopeGuard) Scope() Scope {
	if g == nil || g.closed {
		return Scope{}
	}
	return Scope{cell: g.cell, gen: g.gen}
}

// Scope is an unforgeable tag describing how long a view may be used.
// Scopes are minted by guards and compared structurally; the zero Scope
// is the erased tag produced by proof-gated erasure, carrying no
// validity claim of its own.
type Scope struct {
	cell *scopeCell
	gen  uint64
}

// IsErased reports whether s carries no validity tag.
func (s Scope) IsErased() bool {
	return s.cell == nil
}

// Alive reports whether the scope (and every scope it was opened under)
// is still open. The erased tag reports true: erasure removes the claim
// rather than invalidating it, and restoration is how a checked tag is
// reattached.
func (s Scope) Alive() bool {
	if s.cell == nil {
		return true
	}
	return s.cell.alive(s.gen)
}

// Outlives reports whether s is guaranteed to remain open at least as
// long as other. It holds when s and other are both alive and s is
// other, or an ancestor of other. Erased tags never participate in the
// order.
func (s Scope) Outlives(other Scope) bool {
	if s.cell == nil || other.cell == nil {
		return false
	}
	if !s.Alive() || !other.Alive() {
		return false
	}
	cell, gen := other.cell, other.gen
	for cell != nil {
		if cell == s.cell {
			return gen == s.gen
		}
		gen = cell.parentGen
		cell = cell.parent
	}
	return false
}
