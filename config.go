package statetree

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-statetree/internal/clone"
	"github.com/goliatone/go-statetree/internal/history"
	"github.com/goliatone/go-statetree/internal/lru"
	"github.com/goliatone/go-statetree/internal/paths"
)

// Config holds the tunables of a Store.
type Config struct {
	// CacheSize bounds the resolved-value cache.
	// Default: 100
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// PathCacheSize bounds the compiled-path cache. When full the oldest
	// half is dropped in one pass.
	// Default: 200
	PathCacheSize int `json:"path_cache_size" yaml:"path_cache_size"`

	// HistorySize is the capacity of the change-history ring.
	// Default: 20
	HistorySize int `json:"history_size" yaml:"history_size"`

	// HistoryMaxAge is how long a change stays in history before
	// maintenance purges it. Zero keeps entries until they are evicted.
	// Default: 5m
	HistoryMaxAge time.Duration `json:"history_max_age" yaml:"history_max_age"`

	// MaintenanceInterval is the period of the background sweep. Zero
	// disables the sweep.
	// Default: 30s
	MaintenanceInterval time.Duration `json:"maintenance_interval" yaml:"maintenance_interval"`

	// CloneLimits caps per-level fan-out of the reflective cloner.
	// Default: 1000 elements, 100 keys
	CloneLimits clone.Limits `json:"clone_limits" yaml:"clone_limits"`

	// KeysDepth bounds how deep Keys and Describe descend.
	// Default: 10
	KeysDepth int `json:"keys_depth" yaml:"keys_depth"`
}

// DefaultConfig returns the defaults used by New.
func DefaultConfig() Config {
	return Config{
		CacheSize:           lru.DefaultCapacity,
		PathCacheSize:       paths.DefaultCacheSize,
		HistorySize:         history.DefaultCapacity,
		HistoryMaxAge:       5 * time.Minute,
		MaintenanceInterval: 30 * time.Second,
		CloneLimits:         clone.DefaultLimits,
		KeysDepth:           10,
	}
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.CacheSize <= 0 {
		c.CacheSize = def.CacheSize
	}
	if c.PathCacheSize <= 0 {
		c.PathCacheSize = def.PathCacheSize
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	if c.HistoryMaxAge < 0 {
		c.HistoryMaxAge = 0
	}
	if c.MaintenanceInterval < 0 {
		c.MaintenanceInterval = 0
	}
	if c.CloneLimits.MaxElements < 0 {
		c.CloneLimits.MaxElements = 0
	}
	if c.CloneLimits.MaxKeys < 0 {
		c.CloneLimits.MaxKeys = 0
	}
	if c.KeysDepth <= 0 {
		c.KeysDepth = def.KeysDepth
	}
}

// LoadConfigYAML parses a YAML document over DefaultConfig. Durations use
// Go duration strings ("5m", "30s").
func LoadConfigYAML(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("statetree: parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}
