// pkg/reader/pool_test.go - Unit tests for the double-ended worker pool
package reader

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type routineFunc func()

func (f routineFunc) Do() { f() }

func TestPoolFrontPreemptsBack(t *testing.T) {
	var mu sync.Mutex
	var order []string

	record := func(name string) Routine {
		return routineFunc(func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		})
	}

	gate := make(chan struct{})
	started := make(chan struct{})

	pool := NewPool(1, nil)
	pool.PushBack(routineFunc(func() {
		close(started)
		<-gate
	}))
	<-started

	// The single worker is blocked: queue ordering is now observable.
	pool.PushBack(record("back-1"))
	pool.PushBack(record("back-2"))
	pool.PushFront(record("front"))

	close(gate)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"front", "back-1", "back-2"}, order)

	pool.Stop()
}

func TestPoolStopDiscardsQueued(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})

	var ran sync.Map

	pool := NewPool(1, nil)
	pool.PushBack(routineFunc(func() {
		close(started)
		<-gate
	}))
	<-started

	pool.PushBack(routineFunc(func() { ran.Store("queued", true) }))

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	// Stop joins the running routine and never runs the queued one. The
	// gate opens only after Stop has marked the pool stopped, so the worker
	// cannot dequeue the queued routine before Stop discards it.
	require.Eventually(t, func() bool {
		pool.mu.Lock()
		defer pool.mu.Unlock()
		return pool.stopped
	}, time.Second, time.Millisecond)
	close(gate)
	<-done

	if _, ok := ran.Load("queued"); ok {
		t.Error("queued routine ran after Stop()")
	}

	pool.PushBack(routineFunc(func() { ran.Store("late", true) }))
	if _, ok := ran.Load("late"); ok {
		t.Error("routine pushed after Stop() ran")
	}
}

func TestPoolOnFinish(t *testing.T) {
	var mu sync.Mutex
	finished := 0

	pool := NewPool(2, func(Routine) {
		mu.Lock()
		finished++
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		pool.PushBack(routineFunc(func() {}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return finished == 5
	}, time.Second, time.Millisecond)

	pool.Stop()
}

func TestPoolRecoversPanics(t *testing.T) {
	done := make(chan struct{})

	pool := NewPool(1, nil)
	pool.PushBack(routineFunc(func() { panic("boom") }))
	pool.PushBack(routineFunc(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker died on a panicking routine")
	}

	pool.Stop()
}
