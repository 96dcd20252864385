package pool

// Stats is a point-in-time snapshot of engine-level pool activity, a
// trimmed rendition of the teacher's DetailedPoolStats
// (internal/tunnel/pool_stats.go) scoped to the counters this spec's engine
// actually tracks. It is pure observability: nothing in §3/§8 depends on
// it, and Non-goals only bar adaptive sizing and circuit breaking, not a
// read-only counters surface.
type Stats struct {
	// Created is the total number of connections ever created by the
	// factory.
	Created int64

	// AcquiredReused is the number of Acquire calls satisfied by reusing a
	// healthy idle connection.
	AcquiredReused int64

	// AcquiredCreated is the number of Acquire calls satisfied by creating
	// a new connection.
	AcquiredCreated int64

	// Released is the number of successful Release calls (those that
	// returned true).
	Released int64

	// EvictedUnhealthy is the number of idle connections closed because
	// the health checker rejected them.
	EvictedUnhealthy int64

	// EvictedPruned is the number of idle connections closed by an
	// explicit Prune call.
	EvictedPruned int64
}

// CacheHitRatio returns AcquiredReused / (AcquiredReused + AcquiredCreated),
// or 0 if there have been no acquisitions yet.
func (s Stats) CacheHitRatio() float64 {
	total := s.AcquiredReused + s.AcquiredCreated
	if total == 0 {
		return 0
	}
	return float64(s.AcquiredReused) / float64(total)
}

// Stats returns a snapshot of this engine's counters.
func (e *Engine[K, C]) Stats() Stats {
	return Stats{
		Created:          e.stats.created.Load(),
		AcquiredReused:   e.stats.acquiredReused.Load(),
		AcquiredCreated:  e.stats.acquiredCreated.Load(),
		Released:         e.stats.released.Load(),
		EvictedUnhealthy: e.stats.evictedUnhealthy.Load(),
		EvictedPruned:    e.stats.evictedPruned.Load(),
	}
}
