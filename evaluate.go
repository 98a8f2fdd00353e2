package statetree

import "time"

// Evaluate runs expr against a snapshot of the tree. Top-level keys are
// exposed as variables, alongside now, args, metadata and state (the whole
// snapshot). Nested paths are read with lookup("a.b") and defined("a.b"),
// or state.lookup / state.defined under CEL.
func (s *Store) Evaluate(expr string) (Response[any], error) {
	return s.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith runs expr using ctx, falling back to a snapshot of the tree
// when ctx.Snapshot is nil.
func (s *Store) EvaluateWith(ctx RuleContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, ErrEmptyExpression
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = s.Snapshot()
	}
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = ruleError(RuleRun, engine, expr, ctx.Path, evalErr)
	s.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Path:     ctx.Path,
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

// resolveEvaluator returns the configured evaluator, building the expr
// evaluator on first use.
func (s *Store) resolveEvaluator() (Evaluator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evaluator != nil {
		return s.evaluator, nil
	}
	cache := s.programCache
	if cache == nil {
		cache = NewProgramCache(s.cfg.CacheSize)
		s.programCache = cache
	}
	exprOpts := []ExprEvaluatorOption{ExprWithProgramCache(cache)}
	if s.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(s.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	s.evaluator = evaluator
	return evaluator, nil
}

type namedEvaluator interface {
	engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if named, ok := e.(namedEvaluator); ok {
		return named.engine()
	}
	if e == nil {
		return "unknown"
	}
	return "custom"
}
