package statetree

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-statetree/internal/watchers"
)

var handlerSeq atomic.Uint64

// NewHandler wraps fn with a fresh HandlerID. Register the returned Handler
// with WatchHandler to share one identity across several registrations.
func NewHandler(fn WatchFunc) Handler {
	return Handler{ID: HandlerID(handlerSeq.Add(1)), Fn: fn}
}

// Watch calls fn after every change to the exact path. The returned func
// unsubscribes; calling it more than once is a no-op. A notification queued
// before unsubscribing may still be delivered.
func (s *Store) Watch(path string, fn WatchFunc) func() {
	return s.WatchHandler(path, NewHandler(fn))
}

// WatchHandler registers h on path. Registering the same handler several
// times on one path takes one reference each; h receives one delivery per
// change regardless, and each returned unsubscribe func releases exactly
// one reference.
func (s *Store) WatchHandler(path string, h Handler) func() {
	if h.Fn == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return func() {}
	}
	key := s.compiler.Compile(path).String()
	id := watchers.ID(h.ID)
	s.watchers.Watch(key, id, h.Fn)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if !s.destroyed {
				s.watchers.Unwatch(key, id)
			}
		})
	}
}

// WatchWhen watches path like Watch but only delivers when rule evaluates
// truthy. The rule sees the variables path, value and old. Evaluation
// errors are logged through the evaluator logger and suppress delivery.
func (s *Store) WatchWhen(path, rule string, fn WatchFunc) (func(), error) {
	if fn == nil {
		return func() {}, nil
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	compiled, err := evaluator.Compile(rule)
	if err != nil {
		return nil, ruleError(RuleCompile, evaluatorEngineName(evaluator), rule, path, err)
	}
	engine := evaluatorEngineName(evaluator)
	gated := func(newValue, oldValue any, changed string) {
		ctx := RuleContext{
			Snapshot: map[string]any{
				"path":  changed,
				"value": newValue,
				"old":   oldValue,
			},
			Path: changed,
		}.withDefaults()
		start := time.Now()
		result, evalErr := compiled.Evaluate(ctx)
		evalErr = withChange(ruleError(RuleRun, engine, rule, changed, evalErr), newValue, oldValue)
		s.evalLogger.LogEvaluation(EvaluatorLogEvent{
			Engine:   engine,
			Expr:     rule,
			Path:     changed,
			Duration: time.Since(start),
			Err:      evalErr,
		})
		if evalErr != nil || !truthy(result) {
			return
		}
		fn(newValue, oldValue, changed)
	}
	return s.Watch(path, gated), nil
}

// notify schedules delivery of one change to the handlers registered on
// path at this moment. Handlers get copies of aggregate values. Callers
// hold s.mu.
func (s *Store) notify(path string, newValue, oldValue any) {
	handlers := s.watchers.Handlers(path)
	if len(handlers) == 0 {
		return
	}
	newValue, oldValue = s.cloneValue(newValue), s.cloneValue(oldValue)
	s.queue.Schedule(func() {
		for _, h := range handlers {
			s.deliver(h, path, newValue, oldValue)
		}
	})
}

func (s *Store) deliver(h watchers.Registration[WatchFunc], path string, newValue, oldValue any) {
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			recordWatcherPanic(ctx, path)
			s.logger.Error("statetree watcher panicked",
				"path", path,
				"handler", uint64(h.ID),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	h.Fn(newValue, oldValue, path)
	recordDelivery(ctx)
}

func truthy(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	default:
		return true
	}
}
