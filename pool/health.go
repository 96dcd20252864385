package pool

import "context"

// HealthChecker produces a reusability verdict for a previously-idle
// connection before it is handed back to a caller. Implementations must not
// mutate conn in a way that prevents its reuse.
type HealthChecker[K comparable, C Connection] interface {
	// IsHealthy reports whether conn, last idle under key, may still be
	// delivered to an acquirer. A false verdict causes the engine to close
	// conn and retry the acquire against the next idle candidate.
	IsHealthy(ctx context.Context, conn C, key K) bool
}

// activeOnly is the default HealthChecker: reusability is exactly the
// connection's own IsActive verdict, evaluated synchronously. This mirrors
// the spec's default ("is connected and not closed") and the teacher's
// process-wide "always healthy unless closed" checker instance
// (internal/tunnel/pool_health.go), reproduced here as a stateless shared
// value rather than global mutable state.
type activeOnly[K comparable, C Connection] struct{}

// IsHealthy implements HealthChecker.
func (activeOnly[K, C]) IsHealthy(_ context.Context, conn C, _ K) bool {
	return conn.IsActive()
}

// AlwaysActive returns the default HealthChecker used when Engine is
// constructed with no explicit one: a connection is healthy iff it reports
// itself active.
func AlwaysActive[K comparable, C Connection]() HealthChecker[K, C] {
	return activeOnly[K, C]{}
}

// HealthCheckerFunc adapts a plain function to a HealthChecker.
type HealthCheckerFunc[K comparable, C Connection] func(ctx context.Context, conn C, key K) bool

// IsHealthy implements HealthChecker.
func (f HealthCheckerFunc[K, C]) IsHealthy(ctx context.Context, conn C, key K) bool {
	return f(ctx, conn, key)
}
