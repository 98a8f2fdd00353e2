package statetree

import (
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-statetree/internal/clone"
)

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := LoadConfigYAML([]byte(`
cache_size: 50
history_size: 5
history_max_age: 2m
maintenance_interval: 15s
clone_limits:
  max_elements: 10
  max_keys: 4
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CacheSize != 50 || cfg.HistorySize != 5 {
		t.Fatalf("unexpected sizes %+v", cfg)
	}
	if cfg.HistoryMaxAge != 2*time.Minute || cfg.MaintenanceInterval != 15*time.Second {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.CloneLimits != (clone.Limits{MaxElements: 10, MaxKeys: 4}) {
		t.Fatalf("unexpected clone limits %+v", cfg.CloneLimits)
	}
	if cfg.PathCacheSize != DefaultConfig().PathCacheSize || cfg.KeysDepth != 10 {
		t.Fatalf("expected unset fields to keep defaults, got %+v", cfg)
	}
}

func TestLoadConfigYAMLEmptyAndInvalid(t *testing.T) {
	cfg, err := LoadConfigYAML(nil)
	if err != nil || cfg != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v %v", cfg, err)
	}
	if _, err := LoadConfigYAML([]byte("cache_size: [")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := LoadConfigYAML([]byte("history_max_age: soon")); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{
		CacheSize:           -1,
		HistoryMaxAge:       -time.Second,
		MaintenanceInterval: -time.Second,
		CloneLimits:         clone.Limits{MaxElements: -1, MaxKeys: -1},
	}
	cfg.normalize()

	def := DefaultConfig()
	if cfg.CacheSize != def.CacheSize || cfg.PathCacheSize != def.PathCacheSize || cfg.HistorySize != def.HistorySize {
		t.Fatalf("expected default sizes, got %+v", cfg)
	}
	if cfg.HistoryMaxAge != 0 || cfg.MaintenanceInterval != 0 {
		t.Fatalf("expected negative durations disabled, got %+v", cfg)
	}
	if cfg.CloneLimits != (clone.Limits{}) || cfg.KeysDepth != def.KeysDepth {
		t.Fatalf("unexpected limits %+v", cfg)
	}
}

func TestMaintenanceTickerPurgesHistory(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	s := New(
		WithClock(clock),
		WithHistoryMaxAge(time.Minute),
		WithMaintenanceInterval(5*time.Millisecond),
	)
	t.Cleanup(s.Destroy)

	mustSet(t, s, "a", 1)
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.ChangeHistory(0)) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected background maintenance to purge history")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.Get("a") != 1 {
		t.Fatalf("expected value kept after purge")
	}
}
