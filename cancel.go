package hdrplus

import "sync/atomic"

// CancelToken is a cooperative cancellation flag, polled by Process between
// frames and between major stages (spec.md §5). Cancel is safe to call from
// any goroutine; Cancelled is safe to poll concurrently with Cancel.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken returns a fresh, unset token.
func NewCancelToken() *CancelToken { return &CancelToken{} }

// Cancel marks the token as cancelled. Idempotent.
func (c *CancelToken) Cancel() {
	if c != nil {
		c.flag.Store(true)
	}
}

// Cancelled reports whether Cancel has been called. A nil token is never
// cancelled, so callers that don't need cancellation can pass nil.
func (c *CancelToken) Cancelled() bool {
	return c != nil && c.flag.Load()
}
