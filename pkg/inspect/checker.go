package inspect

import (
	"errors"
	"fmt"
)

// ErrNoEngine reports a checker used without a predicate engine.
var ErrNoEngine = errors.New("inspect: engine not configured")

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// CheckerWithEngine selects the predicate engine. Defaults to the expr
// engine when unset.
func CheckerWithEngine(engine Engine) CheckerOption {
	return func(c *Checker) {
		c.engine = engine
	}
}

// Checker evaluates predicates against a recorder's transition trace.
// It is the programmatic surface test harnesses assert through.
type Checker struct {
	recorder *Recorder
	engine   Engine
}

// NewChecker constructs a checker over recorder.
func NewChecker(recorder *Recorder, opts ...CheckerOption) *Checker {
	c := &Checker{recorder: recorder}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Eval runs expression against the current trace and returns its value.
func (c *Checker) Eval(expression string) (any, error) {
	engine, err := c.resolveEngine()
	if err != nil {
		return nil, err
	}
	ctx := CheckContext{}
	if c.recorder != nil {
		ctx = c.recorder.Context()
	}
	return engine.Check(ctx, expression)
}

// Check runs expression and requires a boolean result.
func (c *Checker) Check(expression string) (bool, error) {
	result, err := c.Eval(expression)
	if err != nil {
		return false, err
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, wrapCheckError("checker", expression, fmt.Errorf("predicate returned %T, want bool", result))
	}
	return ok, nil
}

func (c *Checker) resolveEngine() (Engine, error) {
	if c == nil {
		return nil, ErrNoEngine
	}
	if c.engine != nil {
		return c.engine, nil
	}
	engine := NewExprEngine()
	if engine == nil {
		return nil, ErrNoEngine
	}
	c.engine = engine
	return engine, nil
}
