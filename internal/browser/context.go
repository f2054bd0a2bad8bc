// internal/browser/context.go
package browser

import (
	"context"
	"time"
)

// CombineContext creates a context derived from ctx1 (the session context,
// which carries CDP connection values) that is canceled when either ctx1 or
// ctx2 (the operational context with the caller's deadline) is canceled.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}

// valueOnlyContext wraps a parent context to create a "detached" context: it
// inherits values (CDP target information) but ignores the parent's deadline
// and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context that inherits values from ctx but is not canceled
// when ctx is. Used for cleanup work that must outlive an operation.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
