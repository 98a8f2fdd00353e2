package statetree

import (
	"context"

	"github.com/goliatone/go-statetree/pkg/activity"
)

// WithActivityHooks attaches hooks that receive an event for every write,
// removal, undo, rollback and restore. Nil hooks are dropped. Emission is
// enabled when at least one hook remains, unless WithActivityConfig says
// otherwise.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides the emitter defaults.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *storeConfig) {
		c := config
		cfg.activityConfig = &c
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (s *Store) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return cloneActivityHooks(s.hooks)
}

func newActivityEmitter(cfg storeConfig) *activity.Emitter {
	config := activity.Config{Enabled: len(cfg.activityHooks) > 0}
	if cfg.activityConfig != nil {
		config = *cfg.activityConfig
	}
	return activity.NewEmitter(cfg.activityHooks, config)
}

// emit delivers event on the dispatcher, after any watcher notifications
// already scheduled. Values are copied so later writes cannot leak into
// the event.
func (s *Store) emit(event activity.Event) {
	if !s.emitter.Enabled() {
		return
	}
	if len(event.Metadata) > 0 {
		for _, key := range []string{"old_value", "new_value"} {
			if v, ok := event.Metadata[key]; ok {
				event.Metadata[key] = s.cloneValue(v)
			}
		}
	}
	emitter := s.emitter
	logger := s.logger
	s.queue.Schedule(func() {
		if err := emitter.Emit(context.Background(), event); err != nil {
			logger.Warn("statetree activity hook failed", "verb", event.Verb, "object_id", event.ObjectID, "error", err)
		}
	})
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}
