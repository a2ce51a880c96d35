// Package commission runs commission and decommission requests for a scope
// on one dedicated worker goroutine, strictly in submission order.
package commission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

var (
	// ErrDisposed is returned for requests submitted after Dispose.
	ErrDisposed = errors.New("commissioner disposed")
	// ErrInterrupted is returned for requests abandoned by Dispose.
	ErrInterrupted = errors.New("commission interrupted")
)

// Direction binds a Commissioner to one lifecycle transition.
type Direction int

const (
	Commissioning Direction = iota
	Decommissioning
)

func (d Direction) String() string {
	if d == Decommissioning {
		return "decommission"
	}
	return "commission"
}

// Target is a model that can be brought up or torn down.
type Target interface {
	QualifiedName() string
	Commission(ctx context.Context) error
	Decommission(ctx context.Context) error
}

// A request without a target is a barrier: it completes once every request
// ahead of it has been processed.
type request struct {
	id     uuid.UUID
	ctx    context.Context
	target Target
	done   chan error

	// outcome is claimed once, by the worker when it has a result or by the
	// caller when it stops waiting.
	outcome atomic.Int32
}

const (
	outcomePending int32 = iota
	outcomeSettled
	outcomeAbandoned
)

func (r *request) settle() bool {
	return r.outcome.CompareAndSwap(outcomePending, outcomeSettled)
}

func (r *request) abandon() bool {
	return r.outcome.CompareAndSwap(outcomePending, outcomeAbandoned)
}

// Commissioner owns one worker goroutine and its FIFO queue.
type Commissioner struct {
	name      string
	direction Direction
	log       logr.Logger
	listeners []Listener

	mu       sync.Mutex
	queue    []*request
	disposed bool

	wake   chan struct{}
	stop   context.Context
	cancel context.CancelFunc
	exited chan struct{}
}

type Option func(*Commissioner)

func WithLogger(log logr.Logger) Option {
	return func(c *Commissioner) { c.log = log }
}

// WithListeners registers observers notified after every request.
func WithListeners(listeners ...Listener) Option {
	return func(c *Commissioner) { c.listeners = append(c.listeners, listeners...) }
}

// New starts a Commissioner. Callers must Dispose it.
func New(name string, direction Direction, opts ...Option) *Commissioner {
	stop, cancel := context.WithCancel(context.Background())
	c := &Commissioner{
		name:      name,
		direction: direction,
		log:       logr.Discard(),
		wake:      make(chan struct{}, 1),
		stop:      stop,
		cancel:    cancel,
		exited:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithValues("commissioner", name, "direction", direction.String())
	go c.run()
	return c
}

func (c *Commissioner) Name() string { return c.name }

func (c *Commissioner) Direction() Direction { return c.direction }

// Commission submits target and blocks until the worker has processed it or
// ctx ends. The target's own error is returned unchanged. When ctx ends
// while the target is still being commissioned, the worker decommissions it
// once it comes up; a result the worker already holds is returned instead.
func (c *Commissioner) Commission(ctx context.Context, target Target) (time.Duration, error) {
	start := time.Now()
	req := &request{
		id:     uuid.New(),
		ctx:    ctx,
		target: target,
		done:   make(chan error, 1),
	}
	if !c.enqueue(req) {
		return 0, fmt.Errorf("%w: %s", ErrDisposed, c.name)
	}

	select {
	case err := <-req.done:
		return time.Since(start), err
	case <-ctx.Done():
		if req.abandon() {
			return time.Since(start), ctx.Err()
		}
		return time.Since(start), <-req.done
	}
}

// Flush blocks until every request submitted before it has been processed,
// or ctx ends. Listeners are not notified.
func (c *Commissioner) Flush(ctx context.Context) error {
	req := &request{ctx: ctx, done: make(chan error, 1)}
	if !c.enqueue(req) {
		return fmt.Errorf("%w: %s", ErrDisposed, c.name)
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispose stops the worker. The in-flight request is cancelled and, like
// every queued one, resolved with ErrInterrupted. Dispose returns once the
// worker has exited and may be called more than once.
func (c *Commissioner) Dispose() {
	c.mu.Lock()
	c.disposed = true
	c.mu.Unlock()
	c.cancel()
	<-c.exited
}

func (c *Commissioner) enqueue(req *request) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false
	}
	c.queue = append(c.queue, req)
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

func (c *Commissioner) run() {
	defer close(c.exited)
	c.log.V(1).Info("worker started")
	for {
		req, ok := c.next()
		if !ok {
			c.drain()
			c.log.V(1).Info("worker stopped")
			return
		}
		c.process(req)
	}
}

func (c *Commissioner) next() (*request, bool) {
	for {
		c.mu.Lock()
		if c.stop.Err() != nil {
			c.mu.Unlock()
			return nil, false
		}
		if len(c.queue) > 0 {
			req := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return req, true
		}
		c.mu.Unlock()

		select {
		case <-c.wake:
		case <-c.stop.Done():
		}
	}
}

func (c *Commissioner) drain() {
	c.mu.Lock()
	pending := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, req := range pending {
		if req.target == nil {
			req.done <- fmt.Errorf("%w: %s", ErrInterrupted, c.name)
			continue
		}
		c.resolve(req, fmt.Errorf("%w: %s", ErrInterrupted, req.target.QualifiedName()), 0)
	}
}

func (c *Commissioner) process(req *request) {
	if req.target == nil {
		req.done <- nil
		return
	}
	start := time.Now()
	err := req.ctx.Err()
	if err == nil {
		err = c.execute(req)
		if !req.settle() {
			err = c.undo(req, err)
		}
	}
	if err != nil && c.stop.Err() != nil && !errors.Is(err, ErrInterrupted) {
		err = fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	c.resolve(req, err, time.Since(start))
}

func (c *Commissioner) execute(req *request) error {
	ctx, cancel := context.WithCancel(req.ctx)
	defer cancel()
	release := context.AfterFunc(c.stop, cancel)
	defer release()

	if c.direction == Decommissioning {
		return c.call(Decommissioning, req.target, func() error { return req.target.Decommission(ctx) })
	}
	return c.call(Commissioning, req.target, func() error { return req.target.Commission(ctx) })
}

// undo handles a request whose caller stopped waiting before the worker
// finished it. A target that came up anyway is taken down again.
func (c *Commissioner) undo(req *request, err error) error {
	if err != nil || c.direction != Commissioning {
		return err
	}
	c.log.Info("caller left before commission completed, decommissioning", "model", req.target.QualifiedName())
	derr := c.call(Decommissioning, req.target, func() error {
		return req.target.Decommission(context.WithoutCancel(req.ctx))
	})
	return errors.Join(req.ctx.Err(), derr)
}

func (c *Commissioner) call(direction Direction, target Target, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %s panicked: %v", direction, target.QualifiedName(), r)
		}
	}()
	return fn()
}

// resolve reports the outcome to metrics, the log and the listeners before
// releasing the caller.
func (c *Commissioner) resolve(req *request, err error, elapsed time.Duration) {
	name := req.target.QualifiedName()
	observe(c.direction, elapsed, err)
	if err != nil {
		c.log.Error(err, "request failed", "model", name, "request", req.id.String())
	} else {
		c.log.V(1).Info("request completed", "model", name, "request", req.id.String(), "duration", elapsed)
	}

	result := Result{
		ID:        req.id,
		Model:     name,
		Direction: c.direction,
		Duration:  elapsed,
		Err:       err,
	}
	for _, l := range c.listeners {
		l.Completed(result)
	}
	req.done <- err
}
