package statetree

import "time"

// MaintenanceReport summarizes one maintenance pass.
type MaintenanceReport struct {
	ExpiredChanges int
	PrunedWatchers int
}

// Maintain drops history older than Config.HistoryMaxAge and prunes empty
// watcher entries. It runs periodically when Config.MaintenanceInterval is
// positive and may also be called directly.
func (s *Store) Maintain() MaintenanceReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return MaintenanceReport{}
	}
	report := MaintenanceReport{
		ExpiredChanges: s.purgeExpiredHistory(s.cfg.HistoryMaxAge),
		PrunedWatchers: s.watchers.Prune(),
	}
	cache := s.cache.stats()
	s.logger.Debug("statetree maintenance",
		"expired_changes", report.ExpiredChanges,
		"pruned_watchers", report.PrunedWatchers,
		"cache_size", cache.Size,
		"cache_hits", cache.Hits,
		"cache_misses", cache.Misses,
	)
	return report
}

func (s *Store) startMaintenance(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go func(stop <-chan struct{}, stopped chan<- struct{}) {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Maintain()
			}
		}
	}(s.stop, s.stopped)
}
