// Package metrics exports statetree.Stats as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	statetree "github.com/goliatone/go-statetree"
)

// StatsSource is anything that reports store statistics, such as
// *statetree.Store.
type StatsSource interface {
	Stats() statetree.Stats
}

// Collector reads Stats on every scrape.
type Collector struct {
	source StatsSource

	keys           *prometheus.Desc
	watchedPaths   *prometheus.Desc
	handlers       *prometheus.Desc
	historyLength  *prometheus.Desc
	historyCap     *prometheus.Desc
	cacheSize      *prometheus.Desc
	cacheCap       *prometheus.Desc
	cacheHits      *prometheus.Desc
	cacheMisses    *prometheus.Desc
	cacheEvictions *prometheus.Desc
	compiledPaths  *prometheus.Desc
	pending        *prometheus.Desc
	watcherPanics  *prometheus.Desc
	memoryBytes    *prometheus.Desc
}

// NewCollector builds a collector for source. constLabels are attached to
// every metric, e.g. {"store": "session"} when several stores are exported.
func NewCollector(source StatsSource, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("statetree", "", name), help, nil, constLabels)
	}
	return &Collector{
		source:         source,
		keys:           desc("keys", "Number of leaf values in the tree."),
		watchedPaths:   desc("watched_paths", "Number of paths with at least one watcher."),
		handlers:       desc("handlers", "Number of distinct registered watch handlers."),
		historyLength:  desc("history_length", "Number of recorded changes."),
		historyCap:     desc("history_capacity", "Maximum number of recorded changes."),
		cacheSize:      desc("cache_size", "Number of cached path lookups."),
		cacheCap:       desc("cache_capacity", "Maximum number of cached path lookups."),
		cacheHits:      desc("cache_hits_total", "Value cache hits."),
		cacheMisses:    desc("cache_misses_total", "Value cache misses."),
		cacheEvictions: desc("cache_evictions_total", "Value cache evictions."),
		compiledPaths:  desc("compiled_paths", "Number of memoized compiled paths."),
		pending:        desc("pending_notifications", "Notifications waiting for delivery."),
		watcherPanics:  desc("watcher_panics_total", "Watcher invocations that panicked."),
		memoryBytes:    desc("memory_bytes", "Approximate size of the tree in bytes."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs() {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	stats := c.source.Stats()
	if stats.Destroyed {
		return
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}
	gauge(c.keys, float64(stats.Keys))
	gauge(c.watchedPaths, float64(stats.WatchedPaths))
	gauge(c.handlers, float64(stats.Handlers))
	gauge(c.historyLength, float64(stats.HistoryLength))
	gauge(c.historyCap, float64(stats.HistoryCapacity))
	gauge(c.cacheSize, float64(stats.CacheSize))
	gauge(c.cacheCap, float64(stats.CacheCapacity))
	counter(c.cacheHits, float64(stats.CacheHits))
	counter(c.cacheMisses, float64(stats.CacheMisses))
	counter(c.cacheEvictions, float64(stats.CacheEvictions))
	gauge(c.compiledPaths, float64(stats.CompiledPaths))
	gauge(c.pending, float64(stats.PendingNotifications))
	counter(c.watcherPanics, float64(stats.WatcherPanics))
	gauge(c.memoryBytes, float64(stats.MemoryBytes))
}

func (c *Collector) descs() []*prometheus.Desc {
	return []*prometheus.Desc{
		c.keys, c.watchedPaths, c.handlers, c.historyLength, c.historyCap,
		c.cacheSize, c.cacheCap, c.cacheHits, c.cacheMisses, c.cacheEvictions,
		c.compiledPaths, c.pending, c.watcherPanics, c.memoryBytes,
	}
}
