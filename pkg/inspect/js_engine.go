//go:build js_eval

package inspect

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEngine struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEngine constructs an Engine backed by goja.
func NewJSEngine(opts ...JSEngineOption) Engine {
	cfg := applyJSEngineOptions(opts)
	return &jsEngine{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsEngine) Check(ctx CheckContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEngineError("js", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	if e.cache == nil {
		return e.run(ctx, expression, nil)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *jsEngine) Compile(expression string, _ ...CompileOption) (CompiledPredicate, error) {
	if expression == "" {
		return nil, wrapEngineError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledPredicate{
		engine:     e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsEngine) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapCheckError("js", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsEngine) run(ctx CheckContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	e.injectContext(vm, ctx)
	if program != nil {
		value, err := vm.RunProgram(program)
		if err != nil {
			return nil, wrapCheckError("js", expression, err)
		}
		return value.Export(), nil
	}
	value, err := vm.RunString(e.wrapExpression(expression))
	if err != nil {
		return nil, wrapCheckError("js", expression, err)
	}
	return value.Export(), nil
}

func (e *jsEngine) injectContext(vm *goja.Runtime, ctx CheckContext) {
	vm.Set("now", ctx.timestamp())
	vm.Set("args", ctx.Args)
	vm.Set("metadata", ctx.Metadata)
	for key, value := range ctx.environment() {
		vm.Set(key, value)
	}
	if e.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		})
		for _, name := range e.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			})
		}
	}
}

func (e *jsEngine) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledPredicate struct {
	engine     *jsEngine
	expression string
	program    *goja.Program
}

func (p *jsCompiledPredicate) Check(ctx CheckContext) (any, error) {
	if p.engine == nil {
		return nil, wrapEngineError("js", fmt.Errorf("compiled predicate missing engine"))
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	return p.engine.run(ctx, p.expression, p.program)
}

func jsEngineAvailable() bool {
	return true
}
