package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeConn is a minimal in-memory Connection used throughout the pool
// tests: it tracks liveness and implements the idempotent WatchClose
// contract exactly as the spec's Q1 resolution requires (see
// pool.Connection's doc comment).
type fakeConn struct {
	id int

	mu     sync.Mutex
	active bool

	attr Attribute

	closeOnce sync.Once
	watchOnce sync.Once
	watchFn   func()
}

func newFakeConn(id int) *fakeConn {
	return &fakeConn{id: id, active: true}
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
	c.watchOnce.Do(func() {
		c.watchFn = fn
	})
}

func (c *fakeConn) PoolAttr() *Attribute { return &c.attr }

// fakeFactory counts how many connections it has created and can be told
// to fail the next N calls, for exercising ConnectFailure.
type fakeFactory struct {
	mu        sync.Mutex
	created   int
	failNext  int
	failErr   error
	nextID    int
	onCreated func(*fakeConn)
}

func (f *fakeFactory) Create(_ context.Context, _ DefaultKey) (*fakeConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext > 0 {
		f.failNext--
		if f.failErr == nil {
			f.failErr = errors.New("dial failed")
		}
		return nil, f.failErr
	}

	f.nextID++
	f.created++
	conn := newFakeConn(f.nextID)
	if f.onCreated != nil {
		f.onCreated(conn)
	}
	return conn, nil
}

// countingObserver records how many times each lifecycle callback fired.
type countingObserver struct {
	mu       sync.Mutex
	created  int
	acquired int
	released int
}

func (o *countingObserver) OnCreated(*fakeConn, DefaultKey) {
	o.mu.Lock()
	o.created++
	o.mu.Unlock()
}

func (o *countingObserver) OnAcquired(*fakeConn, DefaultKey) {
	o.mu.Lock()
	o.acquired++
	o.mu.Unlock()
}

func (o *countingObserver) OnReleased(*fakeConn, DefaultKey) {
	o.mu.Lock()
	o.released++
	o.mu.Unlock()
}

func (o *countingObserver) snapshot() (created, acquired, released int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.created, o.acquired, o.released
}

// TestEngineReuseSameKey is scenario S1: acquire, release, acquire again on
// the same key must hand back the very same connection without creating a
// second one.
func TestEngineReuseSameKey(t *testing.T) {
	factory := &fakeFactory{}
	obs := &countingObserver{}
	e := NewEngine[DefaultKey, *fakeConn](factory, WithObserver[DefaultKey, *fakeConn](obs))

	key := NewKey("host-a:22")

	c1, err := e.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ok, err := e.Release(c1)
	if err != nil || !ok {
		t.Fatalf("release: ok=%v err=%v", ok, err)
	}

	c2, err := e.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	if c1 != c2 {
		t.Errorf("expected the same connection to be reused, got different instances")
	}
	if factory.created != 1 {
		t.Errorf("expected exactly 1 connection created, got %d", factory.created)
	}

	created, acquired, released := obs.snapshot()
	if created != 1 || acquired != 1 || released != 1 {
		t.Errorf("expected observer totals created=1 acquired=1 released=1, got created=%d acquired=%d released=%d",
			created, acquired, released)
	}
}

// TestEngineDifferentKeysDoNotShare is scenario S2.
func TestEngineDifferentKeysDoNotShare(t *testing.T) {
	factory := &fakeFactory{}
	e := NewEngine[DefaultKey, *fakeConn](factory)

	k1 := NewKey("host-a:22")
	k2 := NewKeyWithExecutor("host-a:22", nameExecutor("alt"))

	c1, err := e.Acquire(context.Background(), k1)
	if err != nil {
		t.Fatalf("acquire k1: %v", err)
	}
	c2, err := e.Acquire(context.Background(), k2)
	if err != nil {
		t.Fatalf("acquire k2: %v", err)
	}

	if c1 == c2 {
		t.Error("expected distinct connections for distinct keys")
	}
	if factory.created != 2 {
		t.Errorf("expected 2 connections created, got %d", factory.created)
	}
}

type nameExecutor string

func (n nameExecutor) Name() string { return string(n) }

// TestEngineDoubleRelease is scenario S3.
func TestEngineDoubleRelease(t *testing.T) {
	factory := &fakeFactory{}
	e := NewEngine[DefaultKey, *fakeConn](factory)

	key := NewKey("host-a:22")
	c, err := e.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ok, err := e.Release(c)
	if err != nil || !ok {
		t.Fatalf("first release: ok=%v err=%v", ok, err)
	}

	ok, err = e.Release(c)
	if err != nil {
		t.Fatalf("second release returned error: %v", err)
	}
	if ok {
		t.Error("expected second release of the same connection to report false")
	}
}

// TestEngineUnhealthyEviction is scenario S5: a connection that fails its
// health check is closed and never handed to the next acquirer.
func TestEngineUnhealthyEviction(t *testing.T) {
	factory := &fakeFactory{}
	var probes int
	health := HealthCheckerFunc[DefaultKey, *fakeConn](func(_ context.Context, conn *fakeConn, _ DefaultKey) bool {
		probes++
		return probes > 1
	})

	e := NewEngine[DefaultKey, *fakeConn](factory, WithHealthChecker[DefaultKey, *fakeConn](health))

	key := NewKey("host-a:22")
	c1, err := e.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire c1: %v", err)
	}

	if _, err := e.Release(c1); err != nil {
		t.Fatalf("release c1: %v", err)
	}

	c2, err := e.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire c2: %v", err)
	}

	if c1.IsActive() {
		t.Error("expected the unhealthy connection to have been closed")
	}
	if c1 == c2 {
		t.Error("expected a fresh connection after the unhealthy one was evicted")
	}
	if factory.created != 2 {
		t.Errorf("expected 2 connections created, got %d", factory.created)
	}
}

// TestEngineConnectFailureIsScopedToCaller checks that a factory failure
// only fails the acquirer that triggered it.
func TestEngineConnectFailureIsScopedToCaller(t *testing.T) {
	factory := &fakeFactory{failNext: 1}
	e := NewEngine[DefaultKey, *fakeConn](factory)

	key := NewKey("host-a:22")
	_, err := e.Acquire(context.Background(), key)
	if err == nil {
		t.Fatal("expected a ConnectFailure")
	}
	var cf *ConnectFailure[DefaultKey]
	if !errors.As(err, &cf) {
		t.Fatalf("expected *ConnectFailure, got %T: %v", err, err)
	}

	c2, err := e.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("expected the next acquirer to succeed, got: %v", err)
	}
	if c2 == nil {
		t.Fatal("expected a non-nil connection")
	}
}

// TestEngineReleaseForeignConnection covers invariant I4: releasing a
// connection this engine never issued is a no-op, not an error.
func TestEngineReleaseForeignConnection(t *testing.T) {
	e := NewEngine[DefaultKey, *fakeConn](&fakeFactory{})
	foreign := newFakeConn(99)

	ok, err := e.Release(foreign)
	if err != nil {
		t.Fatalf("unexpected error releasing a foreign connection: %v", err)
	}
	if ok {
		t.Error("expected release of a foreign connection to report false")
	}
}

// TestEngineReleaseNilConnection covers the ArgumentError path.
func TestEngineReleaseNilConnection(t *testing.T) {
	e := NewEngine[DefaultKey, *fakeConn](&fakeFactory{})

	_, err := e.Release(nil)
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected *ArgumentError, got %T: %v", err, err)
	}
}

func TestNewEnginePanicsOnNilFactory(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected NewEngine to panic on a nil factory")
		}
	}()
	NewEngine[DefaultKey, *fakeConn](nil)
}

// TestEnginePrune exercises the supplemented, caller-invoked idle reaping
// operation.
func TestEnginePrune(t *testing.T) {
	factory := &fakeFactory{}
	e := NewEngine[DefaultKey, *fakeConn](factory)

	key := NewKey("host-a:22")
	c, err := e.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := e.Release(c); err != nil {
		t.Fatalf("release: %v", err)
	}

	closed := e.Prune(0)
	if closed != 1 {
		t.Errorf("expected Prune to close 1 idle connection, closed %d", closed)
	}
	if c.IsActive() {
		t.Error("expected the pruned connection to be closed")
	}
}

func TestEngineStats(t *testing.T) {
	factory := &fakeFactory{}
	e := NewEngine[DefaultKey, *fakeConn](factory)
	key := NewKey("host-a:22")

	c, err := e.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := e.Release(c); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := e.Acquire(context.Background(), key); err != nil {
		t.Fatalf("reacquire: %v", err)
	}

	stats := e.Stats()
	if stats.Created != 1 {
		t.Errorf("expected Created=1, got %d", stats.Created)
	}
	if stats.AcquiredCreated != 1 || stats.AcquiredReused != 1 {
		t.Errorf("expected one created-acquire and one reused-acquire, got created=%d reused=%d",
			stats.AcquiredCreated, stats.AcquiredReused)
	}
	if stats.Released != 1 {
		t.Errorf("expected Released=1, got %d", stats.Released)
	}
}
