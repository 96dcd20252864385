package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Engine is the simple keyed pool engine (component E): a per-key LIFO
// cache of idle connections plus the acquire/release protocol, health-check
// gating, and key attribution on connections. It implements Pool directly
// and is what BoundedPool wraps to add admission control.
//
// An Engine with a nil factory cannot be constructed — NewEngine panics,
// matching the teacher's convention of panicking on a missing required
// dependency (internal/tunnel/manager.go's NewManager).
type Engine[K comparable, C Connection] struct {
	factory  ConnectionFactory[K, C]
	observer Observer[K, C]
	health   HealthChecker[K, C]

	mu     sync.Mutex
	stacks map[K]*keyStack[C]

	stats engineStats
}

// NewEngine constructs an Engine around factory. It panics if factory is
// nil: a pool with no way to create connections is a programming error, not
// a runtime condition callers should need to check for.
func NewEngine[K comparable, C Connection](factory ConnectionFactory[K, C], opts ...Option[K, C]) *Engine[K, C] {
	if factory == nil {
		panic("pool: NewEngine called with a nil ConnectionFactory")
	}

	cfg := &engineConfig[K, C]{
		observer: NoObserver[K, C](),
		health:   AlwaysActive[K, C](),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Engine[K, C]{
		factory:  factory,
		observer: cfg.observer,
		health:   cfg.health,
		stacks:   make(map[K]*keyStack[C]),
	}
}

// Acquire implements the spec's acquire algorithm: pop the most recently
// released idle connection for key (LIFO), consult the health checker, and
// either deliver it or close it and retry against the next idle candidate.
// When no idle candidate remains, a new connection is created via the
// factory. The retry-on-unhealthy loop is iterative, not recursive, so its
// stack depth never grows with the number of unhealthy idle entries.
func (e *Engine[K, C]) Acquire(ctx context.Context, key K) (C, error) {
	stack := e.keyStackFor(key)

	for {
		conn, ok := stack.pop()
		if !ok {
			return e.create(ctx, key)
		}

		if !e.health.IsHealthy(ctx, conn, key) {
			conn.Close()
			e.stats.evictedUnhealthy.Add(1)
			continue
		}

		// Release's GetAndClear cleared this attribute when the connection
		// went idle, so it must be restored before handing the connection
		// back out, mirroring create's Set — otherwise the next Release of
		// this same reused connection finds no key and silently drops it.
		conn.PoolAttr().Set(key)

		if err := e.safeNotify(key, conn, e.observer.OnAcquired); err != nil {
			var zero C
			return zero, err
		}

		e.stats.acquiredReused.Add(1)
		return conn, nil
	}
}

// create dials a new connection for key, associates it with key via the
// connection's pool attribute, and runs OnCreated before handing it back.
func (e *Engine[K, C]) create(ctx context.Context, key K) (C, error) {
	var zero C

	conn, err := e.factory.Create(ctx, key)
	if err != nil {
		return zero, &ConnectFailure[K]{Key: key, Err: err}
	}
	e.stats.created.Add(1)

	// Set the attribute before OnCreated so a factory-provided initializer
	// hook that reads it back (see the spec's "channel-initializer hook")
	// observes the key association already in place.
	conn.PoolAttr().Set(key)

	if err := e.safeNotify(key, conn, e.observer.OnCreated); err != nil {
		conn.Close()
		return zero, err
	}

	e.stats.acquiredCreated.Add(1)
	return conn, nil
}

// Release implements the spec's release algorithm: atomically recover the
// owning key from the connection's pool attribute, push the connection onto
// that key's idle stack, and notify the observer. Releasing a connection
// this engine never issued (or one already released) is a no-op that
// returns false, per invariant I4 — it is not an error.
func (e *Engine[K, C]) Release(conn C) (bool, error) {
	if isNilConnection(conn) {
		return false, &ArgumentError{Arg: "conn", Err: errNilConnection}
	}

	rawKey, ok := conn.PoolAttr().GetAndClear()
	if !ok {
		return false, nil
	}

	key, ok := rawKey.(K)
	if !ok {
		// The attribute held a value this engine did not put there; treat
		// it the same as foreign/unpooled rather than panicking.
		return false, nil
	}

	stack := e.keyStackFor(key)
	stack.push(conn)

	if err := e.safeNotify(key, conn, e.observer.OnReleased); err != nil {
		return true, err
	}

	e.stats.released.Add(1)
	return true, nil
}

// Prune closes and evicts idle connections that have been sitting, unused,
// for longer than maxIdle. It is never called by the engine itself — the
// spec's Non-goals bar automatic idle eviction by age — but a caller may
// invoke it on its own schedule. Prune returns the number of connections
// closed.
func (e *Engine[K, C]) Prune(maxIdle time.Duration) int {
	e.mu.Lock()
	stacks := make([]*keyStack[C], 0, len(e.stacks))
	for _, st := range e.stacks {
		stacks = append(stacks, st)
	}
	e.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	closed := 0
	for _, st := range stacks {
		closed += st.pruneOlderThan(cutoff)
	}
	e.stats.evictedPruned.Add(int64(closed))
	return closed
}

// keyStackFor returns the idle stack for key, creating it if absent.
// Creation is race-free: concurrent callers converge on the single stack
// instance stored in the map (put-if-absent under e.mu).
func (e *Engine[K, C]) keyStackFor(key K) *keyStack[C] {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.stacks[key]
	if !ok {
		st = &keyStack[C]{}
		e.stacks[key] = st
	}
	return st
}

// safeNotify recovers a panicking observer callback and turns it into an
// InitializerFailure rather than letting it crash the caller's goroutine —
// observers are a trust boundary, so their failure must still be reported,
// not silently swallowed.
func (e *Engine[K, C]) safeNotify(key K, conn C, callback func(C, K)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newInitializerFailure(key, r)
		}
	}()
	callback(conn, key)
	return nil
}

// idleEntry pairs an idle connection with the time it was released, used by
// Prune to find stale entries.
type idleEntry[C Connection] struct {
	conn  C
	since time.Time
}

// keyStack is a lock-guarded LIFO deque of idle connections for one key.
// The spec allows a lock-free deque or a lock-guarded one ("correctness
// does not depend on lock-freedom"); a mutex-guarded slice is the idiomatic
// Go rendition and matches the teacher's map+sync.RWMutex bookkeeping style
// (internal/tunnel/pool_entry.go).
type keyStack[C Connection] struct {
	mu      sync.Mutex
	entries []idleEntry[C]
}

func (s *keyStack[C]) push(conn C) {
	s.mu.Lock()
	s.entries = append(s.entries, idleEntry[C]{conn: conn, since: time.Now()})
	s.mu.Unlock()
}

func (s *keyStack[C]) pop() (C, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	if n == 0 {
		var zero C
		return zero, false
	}

	e := s.entries[n-1]
	s.entries[n-1] = idleEntry[C]{}
	s.entries = s.entries[:n-1]
	return e.conn, true
}

func (s *keyStack[C]) pruneOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	closed := 0
	for _, e := range s.entries {
		if e.since.Before(cutoff) {
			e.conn.Close()
			closed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return closed
}

// engineStats holds the atomic counters backing Engine's contribution to a
// Stats snapshot (see stats.go).
type engineStats struct {
	created          atomic.Int64
	acquiredReused   atomic.Int64
	acquiredCreated  atomic.Int64
	released         atomic.Int64
	evictedUnhealthy atomic.Int64
	evictedPruned    atomic.Int64
}

var errNilConnection = nilConnectionError{}

type nilConnectionError struct{}

func (nilConnectionError) Error() string { return "connection is nil" }
