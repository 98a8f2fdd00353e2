package statetree

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-statetree/internal/clone"
	"github.com/goliatone/go-statetree/layering"
)

// WithConfig replaces the whole configuration. Options applied after it
// still override individual fields.
func WithConfig(config Config) Option {
	return func(cfg *storeConfig) {
		cfg.config = config
	}
}

// WithCacheSize bounds the resolved-value cache.
func WithCacheSize(size int) Option {
	return func(cfg *storeConfig) {
		cfg.config.CacheSize = size
	}
}

// WithPathCacheSize bounds the compiled-path cache.
func WithPathCacheSize(size int) Option {
	return func(cfg *storeConfig) {
		cfg.config.PathCacheSize = size
	}
}

// WithHistorySize sets the change-history capacity.
func WithHistorySize(size int) Option {
	return func(cfg *storeConfig) {
		cfg.config.HistorySize = size
	}
}

// WithHistoryMaxAge sets how long changes stay in history.
func WithHistoryMaxAge(age time.Duration) Option {
	return func(cfg *storeConfig) {
		cfg.config.HistoryMaxAge = age
	}
}

// WithMaintenanceInterval sets the background sweep period; zero disables it.
func WithMaintenanceInterval(interval time.Duration) Option {
	return func(cfg *storeConfig) {
		cfg.config.MaintenanceInterval = interval
	}
}

// WithCloneLimits caps the fan-out of the reflective cloner.
func WithCloneLimits(limits clone.Limits) Option {
	return func(cfg *storeConfig) {
		cfg.config.CloneLimits = limits
	}
}

// WithLogger sets the structured logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *storeConfig) {
		cfg.logger = logger
	}
}

// WithEvaluator configures the evaluator used by Evaluate and WatchWhen.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *storeConfig) {
		cfg.evaluator = e
	}
}

// WithInitialState seeds the tree. The map is cloned.
func WithInitialState(state map[string]any) Option {
	return func(cfg *storeConfig) {
		cfg.initial = state
	}
}

// WithInitialLayers seeds the tree with layers merged strongest first:
// maps merge key by key and the first layer holding a leaf wins.
func WithInitialLayers(layers ...map[string]any) Option {
	return func(cfg *storeConfig) {
		if len(layers) == 0 {
			return
		}
		cfg.initial = layering.MergeLayers(layers...)
	}
}

// WithClock replaces time.Now for history timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(cfg *storeConfig) {
		cfg.clock = now
	}
}
