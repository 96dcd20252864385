package pool

// Option configures an Engine at construction time. Applying the same
// Option twice simply reassigns the field it touches.
type Option[K comparable, C Connection] func(*engineConfig[K, C])

type engineConfig[K comparable, C Connection] struct {
	observer Observer[K, C]
	health   HealthChecker[K, C]
}

// WithObserver installs a lifecycle Observer. The default is NoObserver.
func WithObserver[K comparable, C Connection](o Observer[K, C]) Option[K, C] {
	return func(c *engineConfig[K, C]) { c.observer = o }
}

// WithHealthChecker installs a HealthChecker. The default is AlwaysActive,
// which reuses a connection iff it reports itself active.
func WithHealthChecker[K comparable, C Connection](h HealthChecker[K, C]) Option[K, C] {
	return func(c *engineConfig[K, C]) { c.health = h }
}
