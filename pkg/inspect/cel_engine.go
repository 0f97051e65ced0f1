package inspect

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEngineOption configures the CEL engine.
type CELEngineOption func(*celEngine)

// CELWithProgramCache wires a ProgramCache into the CEL engine.
func CELWithProgramCache(cache ProgramCache) CELEngineOption {
	return func(e *celEngine) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL engine.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEngineOption {
	return func(e *celEngine) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEngine struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEngine constructs an Engine backed by cel-go.
func NewCELEngine(opts ...CELEngineOption) Engine {
	e := &celEngine{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEngine) Check(ctx CheckContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEngineError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapCheckError("cel", expression, err)
	}
	out, _, err := program.program.Eval(e.activation(ctx))
	if err != nil {
		return nil, wrapCheckError("cel", expression, err)
	}
	return out.Value(), nil
}

func (e *celEngine) Compile(expression string, _ ...CompileOption) (CompiledPredicate, error) {
	if expression == "" {
		return nil, wrapEngineError("cel", fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledPredicate{
		engine:     e,
		expression: expression,
	}, nil
}

func (e *celEngine) loadOrCompile(expression string) (*celProgram, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (e *celEngine) buildEnv() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("transitions", celgo.DynType),
		celgo.Variable("ops", celgo.DynType),
		celgo.Variable("final_state", celgo.StringType),
		celgo.Variable("violations", celgo.IntType),
		celgo.Variable("borrows", celgo.IntType),
		celgo.Variable("clears", celgo.IntType),
	}
	if e.registry != nil {
		binding := e.callBinding()
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType},
			celgo.DynType,
			celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
				return binding(values)
			}),
		)))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEngine) activation(ctx CheckContext) map[string]any {
	activation := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	for key, value := range ctx.environment() {
		activation[key] = value
	}
	if e.registry != nil {
		activation["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}
	return activation
}

type celCompiledPredicate struct {
	engine     *celEngine
	expression string
}

func (p *celCompiledPredicate) Check(ctx CheckContext) (any, error) {
	if p.engine == nil {
		return nil, wrapEngineError("cel", fmt.Errorf("compiled predicate missing engine"))
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	program, err := p.engine.loadOrCompile(p.expression)
	if err != nil {
		return nil, wrapCheckError("cel", p.expression, err)
	}
	out, _, err := program.program.Eval(p.engine.activation(ctx))
	if err != nil {
		return nil, wrapCheckError("cel", p.expression, err)
	}
	return out.Value(), nil
}

func (e *celEngine) callBinding() func([]ref.Val) ref.Val {
	return func(values []ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("inspect: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("inspect: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("inspect: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr(err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
