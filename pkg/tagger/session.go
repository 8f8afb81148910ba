// Package tagger runs the tag overlay against one host page. All work, host
// mutations, render cycles and user actions alike, runs on a single loop
// goroutine so no two handlers ever touch the document at the same time.
package tagger

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/mattsolo1/nb-tagger/pkg/observer"
	"github.com/mattsolo1/nb-tagger/pkg/render"
)

// ErrClosed is returned for work submitted after the session stopped.
var ErrClosed = errors.New("session closed")

var errActionPanicked = errors.New("action panicked")

// Page is the host document plus its navigation location. It is only
// touched from the session loop.
type Page struct {
	Doc      *html.Node
	Location string
}

// Options configure a Session.
type Options struct {
	QuietPeriod time.Duration
	Clock       observer.Clock
	// OnRender runs on the loop after every render cycle.
	OnRender func(p *Page)
}

// Session owns the page, the renderers and the change observer.
type Session struct {
	page *Page
	view *render.View
	obs  *observer.Observer
	log  logrus.FieldLogger
	opts Options

	work chan func(context.Context)
	done chan struct{}
	stop sync.Once
}

// NewSession prepares a session over page. Nothing runs until Run.
func NewSession(page *Page, view *render.View, log logrus.FieldLogger, opts Options) *Session {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	s := &Session{
		page: page,
		view: view,
		log:  log,
		opts: opts,
		work: make(chan func(context.Context), 64),
		done: make(chan struct{}),
	}

	obsOpts := []observer.Option{
		observer.WithQuietPeriod(opts.QuietPeriod),
		observer.WithLogger(log),
	}
	if opts.Clock != nil {
		obsOpts = append(obsOpts, observer.WithClock(opts.Clock))
	}
	s.obs = observer.New(s.scheduleRender, obsOpts...)
	return s
}

// Run processes work until ctx is cancelled. The first render is dispatched
// as soon as the loop starts.
func (s *Session) Run(ctx context.Context) error {
	defer s.close()
	s.obs.Start()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.work:
			s.safely(ctx, fn)
		}
	}
}

// Mutate applies a host-side change to the page and notifies the observer.
func (s *Session) Mutate(fn func(p *Page)) error {
	return s.submit(func(context.Context) {
		fn(s.page)
		s.obs.Notify()
	})
}

// Do runs a user action on the loop and waits for it to finish.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context, v *render.View, f render.Frame) error) error {
	result := make(chan error, 1)
	err := s.submit(func(loopCtx context.Context) {
		actionErr := errActionPanicked
		defer func() { result <- actionErr }()
		actionErr = fn(loopCtx, s.view, s.frame())
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// Inspect reads the page on the loop.
func (s *Session) Inspect(ctx context.Context, fn func(p *Page)) error {
	return s.Do(ctx, func(context.Context, *render.View, render.Frame) error {
		fn(s.page)
		return nil
	})
}

// Cycles reports how many render cycles have been dispatched.
func (s *Session) Cycles() int {
	return s.obs.Cycles()
}

func (s *Session) frame() render.Frame {
	return render.Frame{Doc: s.page.Doc, Location: s.page.Location}
}

// scheduleRender is the observer callback. It hands the cycle to the loop
// rather than rendering on the timer goroutine.
func (s *Session) scheduleRender() {
	err := s.submit(func(ctx context.Context) {
		s.view.Render(ctx, s.frame())
		if s.opts.OnRender != nil {
			s.opts.OnRender(s.page)
		}
	})
	if err != nil {
		s.log.WithError(err).Debug("render dropped")
	}
}

func (s *Session) submit(fn func(context.Context)) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.work <- fn:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// safely runs fn, keeping a panicking handler from taking the loop down.
func (s *Session) safely(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("handler panicked")
		}
	}()
	fn(ctx)
}

func (s *Session) close() {
	s.stop.Do(func() {
		s.obs.Stop()
		close(s.done)
	})
}
