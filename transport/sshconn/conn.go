// Package sshconn is a real pool.Connection/pool.ConnectionFactory pair
// backed by golang.org/x/crypto/ssh, grounding the abstract engine in
// internal/tunnel/client.go's SSH client and internal/ssh/connection_pool.go's
// pooled-connection bookkeeping.
package sshconn

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"connpool/pool"
)

// Conn is a pooled SSH connection. It implements pool.Connection: liveness
// tracking, an idempotent close-listener (per pool.Connection's WatchClose
// contract), and the key-attribution slot every pooled connection carries.
//
// Unlike the teacher's PooledConnection (internal/ssh/connection_pool.go),
// which tracks health with its own ad hoc mutex-guarded bool refreshed by a
// background ticker, Conn leaves health policy entirely to the pool's
// HealthChecker — see HealthCheck in this package — and only tracks whether
// the underlying transport is still up.
type Conn struct {
	// ID is a per-connection correlation identifier, minted once at
	// creation, usable to tie together log lines and lifecycle-observer
	// callbacks for the same physical connection across its lifetime.
	ID uuid.UUID

	client *ssh.Client
	attr   pool.Attribute

	mu       sync.Mutex
	active   bool
	closed   bool
	watchSet bool
	watchFn  func()
}

func newConn(client *ssh.Client) *Conn {
	c := &Conn{ID: uuid.New(), client: client, active: true}
	go c.waitForClose()
	return c
}

// waitForClose blocks until the underlying transport's session ends — either
// because this side called Close, or because the remote end hung up — and
// marks the connection closed either way.
func (c *Conn) waitForClose() {
	c.client.Wait()
	c.markClosed()
}

// markClosed transitions the connection to closed exactly once, however many
// of Close/waitForClose race to call it, and fires the close-listener
// registered so far. If WatchClose is called later (after this connection is
// already closed), it fires the callback immediately instead. c.watchFn is
// only read or written under c.mu; the listener itself runs after the lock
// is released.
func (c *Conn) markClosed() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.active = false
	fn := c.watchFn
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// IsActive implements pool.Connection.
func (c *Conn) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Close implements pool.Connection. It is safe to call more than once and
// safe to call concurrently with the remote end closing the session.
func (c *Conn) Close() error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil
	}

	err := c.client.Close()
	c.markClosed()
	return err
}

// WatchClose implements pool.Connection. Only the first registration takes
// effect, matching the idempotency the bounded-admission wrapper relies on
// to avoid double-counting a freed admission slot. If the connection already
// closed before this call (the listener lost the race against a fast
// dial-then-drop), fn fires immediately instead of being silently dropped.
func (c *Conn) WatchClose(fn func()) {
	c.mu.Lock()
	if c.watchSet {
		c.mu.Unlock()
		return
	}
	c.watchSet = true

	if c.closed {
		c.mu.Unlock()
		fn()
		return
	}

	c.watchFn = fn
	c.mu.Unlock()
}

// PoolAttr implements pool.Connection.
func (c *Conn) PoolAttr() *pool.Attribute { return &c.attr }

// NewSession opens a new SSH session on this connection, for running a
// single remote command. Grounded on internal/tunnel/client.go's Execute,
// trimmed to the one primitive this package exposes directly — callers that
// need retry/timeout/streaming semantics build them on top, the same way
// tunnel.Client builds Execute on top of *ssh.Client.NewSession.
func (c *Conn) NewSession() (*ssh.Session, error) {
	return c.client.NewSession()
}

// Client returns the underlying *ssh.Client, for callers that need lower
// level access than NewSession (e.g. port forwarding, agent forwarding).
func (c *Conn) Client() *ssh.Client { return c.client }
