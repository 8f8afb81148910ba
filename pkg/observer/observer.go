// Package observer coalesces bursts of document mutations into single render
// cycles. Every notification restarts a quiet-period timer; the render runs
// once the timer fires without being re-armed.
package observer

import (
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultQuietPeriod is how long the document must stay still before a
// render is dispatched.
const DefaultQuietPeriod = 300 * time.Millisecond

// State is the scheduler state.
type State int

const (
	// Idle means no render is scheduled.
	Idle State = iota
	// Pending means a timer is armed and a render will follow.
	Pending
	// Stopped means the observer no longer schedules renders.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Timer is the cancellable handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The real clock uses time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Option configures an Observer.
type Option func(*Observer)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(o *Observer) { o.clock = c } }

// WithQuietPeriod overrides DefaultQuietPeriod.
func WithQuietPeriod(d time.Duration) Option {
	return func(o *Observer) {
		if d > 0 {
			o.quiet = d
		}
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(l logrus.FieldLogger) Option { return func(o *Observer) { o.log = l } }

// Observer is the debounced render scheduler.
type Observer struct {
	mu     sync.Mutex
	state  State
	timer  Timer
	gen    uint64
	clock  Clock
	quiet  time.Duration
	render func()
	cycles int

	renderMu sync.Mutex
	log      logrus.FieldLogger
}

// New returns an idle Observer that calls render after each quiet period.
func New(render func(), opts ...Option) *Observer {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	o := &Observer{
		state:  Idle,
		clock:  realClock{},
		quiet:  DefaultQuietPeriod,
		render: render,
		log:    discard,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start dispatches the initial render immediately.
func (o *Observer) Start() {
	o.mu.Lock()
	if o.state == Stopped {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()
	o.dispatch()
}

// Notify records a mutation: any pending render is cancelled and a new one
// is scheduled after the quiet period.
func (o *Observer) Notify() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Stopped {
		return
	}
	if o.timer != nil {
		o.timer.Stop()
	}
	o.gen++
	gen := o.gen
	o.state = Pending
	o.timer = o.clock.AfterFunc(o.quiet, func() { o.fire(gen) })
}

// Stop cancels any pending render. The observer cannot be restarted.
func (o *Observer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.gen++
	o.state = Stopped
}

// State returns the current scheduler state.
func (o *Observer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Cycles returns how many renders have been dispatched.
func (o *Observer) Cycles() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cycles
}

func (o *Observer) fire(gen uint64) {
	o.mu.Lock()
	// a timer that lost the race with Stop or a re-arm is stale
	if gen != o.gen || o.state != Pending {
		o.mu.Unlock()
		return
	}
	o.state = Idle
	o.timer = nil
	o.mu.Unlock()

	o.dispatch()
}

func (o *Observer) dispatch() {
	o.mu.Lock()
	o.cycles++
	cycle := o.cycles
	o.mu.Unlock()

	o.renderMu.Lock()
	defer o.renderMu.Unlock()
	o.log.WithField("cycle", cycle).Debug("render dispatched")
	if o.render != nil {
		o.render()
	}
}
