package pool

import "fmt"

// Executor is an opaque handle to whatever thread/goroutine-affinity domain
// a connection should be bound to. The pool never inspects it beyond
// carrying it through to the ConnectionFactory; most callers can ignore it
// entirely and rely on DefaultKey's zero value.
type Executor interface {
	// Name identifies the executor for logging and key equality.
	Name() string
}

// DefaultKey is the concrete pool key this module ships: a remote address
// plus an optional executor binding. Two DefaultKey values are equal (and
// therefore share an idle stack) iff both fields are equal, which is
// exactly what Go's comparable constraint on Engine's K type parameter
// already gives struct types with no slice/map/func fields.
type DefaultKey struct {
	Address  string
	Executor string
}

// NewKey builds a DefaultKey bound to no particular executor.
func NewKey(address string) DefaultKey {
	return DefaultKey{Address: address}
}

// NewKeyWithExecutor builds a DefaultKey pinned to a named executor, so that
// two keys for the same address but different executors partition the
// cache separately (spec scenario S2).
func NewKeyWithExecutor(address string, executor Executor) DefaultKey {
	name := ""
	if executor != nil {
		name = executor.Name()
	}
	return DefaultKey{Address: address, Executor: name}
}

// RemoteAddress returns the key's address component.
func (k DefaultKey) RemoteAddress() string { return k.Address }

// ExecutorHandle returns the name of the executor this key is pinned to, or
// "" if the key carries no executor binding.
func (k DefaultKey) ExecutorHandle() string { return k.Executor }

// String renders the key for logging.
func (k DefaultKey) String() string {
	if k.Executor == "" {
		return k.Address
	}
	return fmt.Sprintf("%s@%s", k.Executor, k.Address)
}
