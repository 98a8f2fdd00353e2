package statetree

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("github.com/goliatone/go-statetree")
	meter  = otel.Meter("github.com/goliatone/go-statetree")
)

var (
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
	cacheEvictions metric.Int64Counter
	writesTotal    metric.Int64Counter
	deliveries     metric.Int64Counter
	watcherPanics  metric.Int64Counter
	rollbacks      metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments once. Safe to call repeatedly.
func initMetrics() error {
	metricsOnce.Do(func() {
		counters := []struct {
			dst  *metric.Int64Counter
			name string
			desc string
		}{
			{&cacheHits, "statetree_cache_hits_total", "Value cache hits"},
			{&cacheMisses, "statetree_cache_misses_total", "Value cache misses"},
			{&cacheEvictions, "statetree_cache_evictions_total", "Value cache capacity evictions"},
			{&writesTotal, "statetree_writes_total", "Committed writes and removals"},
			{&deliveries, "statetree_notifications_total", "Watcher deliveries"},
			{&watcherPanics, "statetree_watcher_panics_total", "Recovered watcher panics"},
			{&rollbacks, "statetree_transaction_rollbacks_total", "Rolled back transactions"},
		}
		for _, c := range counters {
			counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
			if err != nil {
				metricsErr = err
				return
			}
			*c.dst = counter
		}
	})
	return metricsErr
}

func recordCacheHit(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheHits.Add(ctx, 1)
}

func recordCacheMiss(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheMisses.Add(ctx, 1)
}

func recordCacheEviction(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheEvictions.Add(ctx, 1)
}

func recordWrite(ctx context.Context, op string) {
	if err := initMetrics(); err != nil {
		return
	}
	writesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func recordDelivery(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	deliveries.Add(ctx, 1)
}

func recordWatcherPanic(ctx context.Context, path string) {
	if err := initMetrics(); err != nil {
		return
	}
	watcherPanics.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

func recordRollback(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	rollbacks.Add(ctx, 1)
}

// startTransactionSpan creates a span covering one transaction body.
func startTransactionSpan(ctx context.Context, txID string, depth int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "statetree.Transaction",
		trace.WithAttributes(
			attribute.String("statetree.tx_id", txID),
			attribute.Int("statetree.tx_depth", depth),
		),
	)
}

// endTransactionSpan records the outcome and ends span.
func endTransactionSpan(span trace.Span, err error, panicked bool) {
	switch {
	case panicked:
		span.SetStatus(codes.Error, "panic")
		span.SetAttributes(attribute.Bool("statetree.rolled_back", true))
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("statetree.rolled_back", true))
	default:
		span.SetAttributes(attribute.Bool("statetree.rolled_back", false))
	}
	span.End()
}
