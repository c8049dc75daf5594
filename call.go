package goSnap

import (
	"context"
	"errors"
)

// Result is the outcome delivered by a Call.
type Result[T any] struct {
	Value T
	Err   error
}

// Call is the handle of an operation started with Go.
type Call[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}
	result Result[T]
}

// Go runs fn on its own goroutine and returns a handle to it. callbacks are
// invoked once, in order, on that goroutine before Done is closed. If the
// call is canceled before fn returns, the outcome is a KindCanceled error
// and never a success. An expired deadline is not a cancellation: fn's own
// outcome stands, which for a request is a KindNetwork timeout.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error), callbacks ...func(T, error)) *Call[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithCancel(ctx)
	c := &Call[T]{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer cancel()

		value, err := fn(cctx)
		if cerr := cctx.Err(); errors.Is(cerr, context.Canceled) && KindOf(err) != KindCanceled {
			var zero T
			value, err = zero, newError(KindCanceled, "call", cerr)
		}
		c.result = Result[T]{Value: value, Err: err}

		for _, cb := range callbacks {
			if cb != nil {
				cb(value, err)
			}
		}
		close(c.done)
	}()

	return c
}

// Cancel cancels the call's context. It does not roll back remote effects.
func (c *Call[T]) Cancel() {
	c.cancel()
}

// Done is closed once the outcome is available.
func (c *Call[T]) Done() <-chan struct{} {
	return c.done
}

// Result blocks until the call completes and returns its outcome.
func (c *Call[T]) Result() Result[T] {
	<-c.done
	return c.result
}

// Wait is Result unpacked.
func (c *Call[T]) Wait() (T, error) {
	r := c.Result()
	return r.Value, r.Err
}
