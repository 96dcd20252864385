package pool

import "context"

// ConnectionFactory is the external collaborator that knows how to dial a
// new connection for a key. It is the only component this package assumes
// exists outside of it; transport/sshconn supplies a concrete one over SSH.
type ConnectionFactory[K comparable, C Connection] interface {
	// Create dials a new connection bound to key. The returned connection
	// must not yet have its pool attribute set — the engine sets it after
	// a successful Create, before handing the connection to OnCreated.
	Create(ctx context.Context, key K) (C, error)
}

// ConnectionFactoryFunc adapts a plain function to a ConnectionFactory.
type ConnectionFactoryFunc[K comparable, C Connection] func(ctx context.Context, key K) (C, error)

// Create implements ConnectionFactory.
func (f ConnectionFactoryFunc[K, C]) Create(ctx context.Context, key K) (C, error) {
	return f(ctx, key)
}
