package emitter

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc handles one decoded message and reports whether its work is
// finished (Immediate) or still running (Pending).
type HandlerFunc func(msg interface{}) Result

// Listener is a registration handle. Identity is the pointer: registering the
// same *Listener twice on a topic keeps a single entry.
type Listener struct {
	fn     HandlerFunc
	origin *Listener
}

// NewListener wraps fn in a new handle.
func NewListener(fn HandlerFunc) *Listener {
	return &Listener{fn: fn}
}

// ListenerFunc adapts a plain callback whose work is done when it returns.
func ListenerFunc(fn func(msg interface{})) *Listener {
	return NewListener(func(msg interface{}) Result {
		fn(msg)
		return Immediate(nil)
	})
}

// AsyncListener runs fn on its own goroutine for every message. The topic
// stays paused until fn returns.
func AsyncListener(fn func(msg interface{}) error) *Listener {
	return NewListener(func(msg interface{}) Result {
		return Pending(Go(func() error { return fn(msg) }))
	})
}

// Call invokes the listener directly.
func (l *Listener) Call(msg interface{}) Result {
	if l.fn == nil {
		return Immediate(nil)
	}
	return l.fn(msg)
}

// matches reports whether l is target or a once-wrapper around target.
func (l *Listener) matches(target *Listener) bool {
	return l == target || (l.origin != nil && l.origin == target)
}

// Result is what a listener hands back to the dispatcher.
type Result struct {
	value  interface{}
	future *Future
}

// Immediate is a finished result.
func Immediate(v interface{}) Result { return Result{value: v} }

// Pending is a result still being computed. A nil future is treated as Immediate(nil).
func Pending(f *Future) Result { return Result{future: f} }

// Value returns the value of an Immediate result.
func (r Result) Value() interface{} { return r.value }

// Future returns the handle of a Pending result, nil otherwise.
func (r Result) Future() *Future { return r.future }

// IsPending reports whether the dispatcher has to wait for r.
func (r Result) IsPending() bool { return r.future != nil }

// Future is a single-assignment completion signal.
type Future struct {
	done chan struct{}
	once sync.Once
	err  error
}

// NewFuture returns an unsettled Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Go runs fn on a new goroutine and settles the returned Future with its
// error. A panic in fn settles the Future with an error.
func Go(fn func() error) *Future {
	f := NewFuture()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Resolve(fmt.Errorf("emitter: async listener panic: %v", r))
			}
		}()
		f.Resolve(fn())
	}()
	return f
}

// Resolve settles f. Only the first call has an effect.
func (f *Future) Resolve(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once f settles.
func (f *Future) Done() <-chan struct{} { return f.done }

// Err returns the settlement error; nil while unsettled.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until f settles or ctx ends.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
