package statetree

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-statetree/pkg/activity"
)

// WatchFunc receives the new and previous value of a watched path. It runs
// on the store's dispatcher goroutine after the write that caused it has
// returned.
type WatchFunc func(newValue, oldValue any, path string)

// HandlerID identifies a watch handler. Registrations are reference counted
// per ID, never per function value.
type HandlerID uint64

// Handler pairs a WatchFunc with a stable identity so the same callback can
// be registered on several paths, or several times on one path, and
// released symmetrically.
type Handler struct {
	ID HandlerID
	Fn WatchFunc
}

// Update is one write in a BatchSet call.
type Update struct {
	Path  string
	Value any
}

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Path     string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	config         Config
	logger         *slog.Logger
	evaluator      Evaluator
	programCache   ProgramCache
	functions      *FunctionRegistry
	evalLogger     EvaluatorLogger
	activityHooks  activity.Hooks
	activityConfig *activity.Config
	initial        map[string]any
	clock          func() time.Time
	optionErrs     []error
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{config: DefaultConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.config.normalize()
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	return cfg
}
