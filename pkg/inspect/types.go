// Package inspect provides the diagnostics surface for self-referential
// containers: an append-only transition trace and expression-based
// predicates over that trace, intended for test harnesses and debugging
// tools.
package inspect

import "time"

// Transition is one recorded container transition, applied or rejected.
type Transition struct {
	ID          string    `json:"id"`
	ContainerID string    `json:"container_id,omitempty"`
	Op          string    `json:"op"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Rejected    bool      `json:"rejected"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// CheckContext carries inputs needed when evaluating a trace predicate.
type CheckContext struct {
	Trace    []Transition
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx CheckContext) withDefaultNow() CheckContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx CheckContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx CheckContext) withDefaultMaps() CheckContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

// environment flattens the trace into the bindings predicates see.
func (ctx CheckContext) environment() map[string]any {
	transitions := make([]map[string]any, 0, len(ctx.Trace))
	ops := make([]string, 0, len(ctx.Trace))
	finalState := "empty"
	violations, borrows, clears := 0, 0, 0
	for _, tr := range ctx.Trace {
		transitions = append(transitions, map[string]any{
			"id":           tr.ID,
			"container_id": tr.ContainerID,
			"op":           tr.Op,
			"from":         tr.From,
			"to":           tr.To,
			"rejected":     tr.Rejected,
			"error":        tr.Error,
		})
		ops = append(ops, tr.Op)
		if tr.Rejected {
			violations++
			continue
		}
		finalState = tr.To
		switch tr.Op {
		case "borrow_shared", "borrow_exclusive":
			borrows++
		case "clear":
			clears++
		}
	}
	return map[string]any{
		"transitions": transitions,
		"ops":         ops,
		"final_state": finalState,
		"violations":  violations,
		"borrows":     borrows,
		"clears":      clears,
	}
}

// Engine executes trace predicates.
type Engine interface {
	Check(ctx CheckContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledPredicate, error)
}

// CompiledPredicate represents a reusable predicate program.
type CompiledPredicate interface {
	Check(ctx CheckContext) (any, error)
}

// CompileOption configures engine compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// ProgramCache stores compiled predicate programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
