package observer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func TestStartRendersImmediately(t *testing.T) {
	var renders int
	o := New(func() { renders++ }, WithClock(&fakeClock{}))

	o.Start()
	assert.Equal(t, 1, renders)
	assert.Equal(t, Idle, o.State())
}

func TestBurstCoalescesIntoOneRender(t *testing.T) {
	clock := &fakeClock{}
	var renders int
	o := New(func() { renders++ }, WithClock(clock))

	for i := 0; i < 10; i++ {
		o.Notify()
		assert.Equal(t, Pending, o.State())
		clock.Advance(50 * time.Millisecond)
	}
	assert.Equal(t, 0, renders)

	clock.Advance(DefaultQuietPeriod)
	assert.Equal(t, 1, renders)
	assert.Equal(t, Idle, o.State())

	clock.Advance(time.Second)
	assert.Equal(t, 1, renders)
}

func TestQuietPeriodBoundary(t *testing.T) {
	clock := &fakeClock{}
	var renders int
	o := New(func() { renders++ }, WithClock(clock), WithQuietPeriod(100*time.Millisecond))

	o.Notify()
	clock.Advance(99 * time.Millisecond)
	assert.Equal(t, 0, renders)
	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, renders)

	o.Notify()
	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 2, renders)
	assert.Equal(t, 2, o.Cycles())
}

func TestStopCancelsPendingRender(t *testing.T) {
	clock := &fakeClock{}
	var renders int
	o := New(func() { renders++ }, WithClock(clock))

	o.Notify()
	o.Stop()
	clock.Advance(time.Second)
	assert.Equal(t, 0, renders)
	assert.Equal(t, Stopped, o.State())

	o.Notify()
	o.Start()
	clock.Advance(time.Second)
	assert.Equal(t, 0, renders)
}

func TestStaleTimerIsIgnored(t *testing.T) {
	clock := &fakeClock{}
	var renders int
	o := New(func() { renders++ }, WithClock(clock))

	o.Notify()
	stale := clock.timers[0]
	o.Notify()

	// the stale callback may still run if Stop lost the race
	stale.f()
	assert.Equal(t, 0, renders)

	clock.Advance(DefaultQuietPeriod)
	assert.Equal(t, 1, renders)
}

func TestRealClockBurst(t *testing.T) {
	var renders atomic.Int32
	o := New(func() { renders.Add(1) }, WithQuietPeriod(60*time.Millisecond))

	for i := 0; i < 10; i++ {
		o.Notify()
		time.Sleep(5 * time.Millisecond)
	}
	assert.Eventually(t, func() bool { return renders.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), renders.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "stopped", Stopped.String())
}
