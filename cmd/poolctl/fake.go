package main

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"connpool/pool"
)

// fakeConn simulates a network connection without ever touching a real
// socket; it stays active until Close, so it always passes fakeHealthCheck —
// grounded on internal/tunnel/mock.go's MockClient, which fakes an SSH
// client the same way for unit tests.
type fakeConn struct {
	mu     sync.Mutex
	active bool
	attr   pool.Attribute

	closeOnce sync.Once
	watchOnce sync.Once
	watchFn   func()
}

func newFakeConn() *fakeConn {
	return &fakeConn{active: true}
}

func (c *fakeConn) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		if c.watchFn != nil {
			c.watchFn()
		}
	})
	return nil
}

func (c *fakeConn) WatchClose(fn func()) {
	c.watchOnce.Do(func() { c.watchFn = fn })
}

func (c *fakeConn) PoolAttr() *pool.Attribute { return &c.attr }

// fakeFactory dials a fakeConn after a small simulated latency (5-19ms). It
// fails only when ctx is done first.
type fakeFactory struct{}

func (fakeFactory) Create(ctx context.Context, _ pool.DefaultKey) (*fakeConn, error) {
	select {
	case <-time.After(time.Duration(5+rand.Intn(15)) * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return newFakeConn(), nil
}

var fakeHealthCheck = pool.HealthCheckerFunc[pool.DefaultKey, *fakeConn](
	func(_ context.Context, conn *fakeConn, _ pool.DefaultKey) bool {
		return conn.IsActive()
	},
)

// fakeDemoPool adapts a *pool.BoundedPool[pool.DefaultKey, *fakeConn] to
// demoPool.
type fakeDemoPool struct {
	bp *pool.BoundedPool[pool.DefaultKey, *fakeConn]
}

func newFakeDemoPool(maxConns int) (fakeDemoPool, error) {
	engine := pool.NewEngine[pool.DefaultKey, *fakeConn](
		fakeFactory{},
		pool.WithHealthChecker[pool.DefaultKey, *fakeConn](fakeHealthCheck),
	)
	bp, err := pool.NewBoundedPool[pool.DefaultKey, *fakeConn](engine, maxConns)
	if err != nil {
		return fakeDemoPool{}, err
	}
	return fakeDemoPool{bp}, nil
}

func (d fakeDemoPool) acquireAndRelease(ctx context.Context, key pool.DefaultKey) error {
	conn, err := d.bp.Acquire(ctx, key)
	if err != nil {
		return err
	}
	time.Sleep(time.Duration(1+rand.Intn(5)) * time.Millisecond)
	_, err = d.bp.Release(conn)
	return err
}

func (d fakeDemoPool) stats() pool.BoundedStats { return d.bp.Stats() }
