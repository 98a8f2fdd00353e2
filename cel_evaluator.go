package statetree

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache reuses checked programs across evaluations. Entries
// are keyed by expression and snapshot shape.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry exposes registry functions through
// call(name, args...).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator returns a rule engine backed by cel-go. Top level
// snapshot keys are declared as dyn variables; nested paths are reachable
// with state.lookup("a.b") and state.defined("a.b").
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	return e.run(ctx, expression)
}

// Compile defers checking to the first evaluation: the declared variables
// depend on the snapshot the rule runs against.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	parser, err := celParseEnv()
	if err != nil {
		return nil, ruleError(RuleCompile, "cel", expression, "", err)
	}
	if _, issues := parser.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, ruleError(RuleCompile, "cel", expression, "", issues.Err())
	}
	return celRule{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) run(ctx RuleContext, expression string) (any, error) {
	scope := newRuleScope(ctx, e.registry)
	program, err := e.program(expression, scope.tree)
	if err != nil {
		return nil, err
	}
	out, _, err := program.Eval(e.activation(scope))
	if err != nil {
		return nil, ruleError(RuleRun, "cel", expression, scope.ctx.Path, err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) program(expression string, tree map[string]any) (celgo.Program, error) {
	key := celCacheKey(expression, tree)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}
	env, err := e.env(tree)
	if err != nil {
		return nil, ruleError(RuleCompile, "cel", expression, "", err)
	}
	checked, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, ruleError(RuleCompile, "cel", expression, "", issues.Err())
	}
	program, err := env.Program(checked)
	if err != nil {
		return nil, ruleError(RuleCompile, "cel", expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *celEvaluator) env(tree map[string]any) (*celgo.Env, error) {
	opts := make([]celgo.EnvOption, 0, len(tree)+6)
	for key := range tree {
		if !isReservedRuleName(key) {
			opts = append(opts, celgo.Variable(key, celgo.DynType))
		}
	}
	opts = append(opts,
		celgo.Variable(ruleNow, celgo.TimestampType),
		celgo.Variable(ruleArgs, celgo.DynType),
		celgo.Variable(ruleMetadata, celgo.DynType),
		celgo.Variable(ruleState, celgo.DynType),
		celgo.Function(ruleLookup, celgo.MemberOverload("state_lookup_string",
			[]*celgo.Type{celgo.DynType, celgo.StringType}, celgo.DynType,
			celgo.BinaryBinding(celTreeLookup))),
		celgo.Function(ruleDefined, celgo.MemberOverload("state_defined_string",
			[]*celgo.Type{celgo.DynType, celgo.StringType}, celgo.BoolType,
			celgo.BinaryBinding(celTreeDefined))),
	)
	if e.registry != nil {
		opts = append(opts, celgo.Function(ruleCall, e.callOverloads()...))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(scope ruleScope) map[string]any {
	activation := make(map[string]any, len(scope.tree)+4)
	for key, value := range scope.tree {
		activation[key] = value
	}
	activation[ruleNow] = scope.ctx.timestamp()
	activation[ruleArgs] = scope.ctx.Args
	activation[ruleMetadata] = scope.ctx.Metadata
	activation[ruleState] = scope.tree
	return activation
}

func (e *celEvaluator) engine() string { return "cel" }

type celRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r celRule) Evaluate(ctx RuleContext) (any, error) {
	return r.evaluator.run(ctx, r.expression)
}

// celCacheKey includes the declared variable names: a program checked
// against one snapshot shape cannot run against another.
func celCacheKey(expression string, tree map[string]any) string {
	names := make([]string, 0, len(tree))
	for key := range tree {
		names = append(names, key)
	}
	sort.Strings(names)
	return "cel:" + strings.Join(names, ",") + ":" + expression
}

func isReservedRuleName(name string) bool {
	switch name {
	case ruleNow, ruleArgs, ruleMetadata, ruleState:
		return true
	}
	return false
}

var mapType = reflect.TypeOf(map[string]any{})

func celTree(val ref.Val) map[string]any {
	native, err := val.ConvertToNative(mapType)
	if err != nil {
		return nil
	}
	tree, _ := native.(map[string]any)
	return tree
}

func celTreeLookup(tree, path ref.Val) ref.Val {
	p, ok := path.Value().(string)
	if !ok {
		return types.NewErr("statetree: lookup path must be a string")
	}
	v, found := lookupPath(celTree(tree), p)
	if !found || v == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(v)
}

func celTreeDefined(tree, path ref.Val) ref.Val {
	p, ok := path.Value().(string)
	if !ok {
		return types.NewErr("statetree: defined path must be a string")
	}
	_, found := lookupPath(celTree(tree), p)
	return types.Bool(found)
}

// celMaxCallArgs bounds the arity of call(name, args...).
const celMaxCallArgs = 4

// callOverloads declares call(name), call(name, a), ... up to
// celMaxCallArgs arguments, all bound to the registry.
func (e *celEvaluator) callOverloads() []celgo.FunctionOpt {
	binding := celgo.FunctionBinding(e.callBinding())
	overloads := make([]celgo.FunctionOpt, 0, celMaxCallArgs+1)
	params := []*celgo.Type{celgo.StringType}
	for arity := 0; arity <= celMaxCallArgs; arity++ {
		args := append([]*celgo.Type(nil), params...)
		overloads = append(overloads, celgo.Overload(fmt.Sprintf("call_string_%d", arity), args, celgo.DynType, binding))
		params = append(params, celgo.DynType)
	}
	return overloads
}

func (e *celEvaluator) callBinding() functions.FunctionOp {
	registry := e.registry
	return func(values ...ref.Val) ref.Val {
		if len(values) == 0 {
			return types.NewErr("statetree: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("statetree: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

var celParseEnv = sync.OnceValues(func() (*celgo.Env, error) {
	return celgo.NewEnv()
})
