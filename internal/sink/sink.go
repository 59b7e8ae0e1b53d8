// Package sink defines the buffered Sink contract and the destinations
// matched records are delivered to.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/Geun-Oh/elbfilter/internal/record"
)

// ErrClosed is returned by Push after a sink has been finalized.
var ErrClosed = errors.New("sink is closed")

// Sink receives matched records from the dispatch loop. Calls come from a
// single goroutine; implementations need no locking.
type Sink interface {
	// Push buffers a copy of r, flushing first if the buffer is full.
	Push(ctx context.Context, r *record.Record) error

	// Flush delivers the buffered batch. The buffer is cleared only when
	// delivery succeeds.
	Flush(ctx context.Context) error

	// Close performs the final flush. Only the first call has any effect.
	Close(ctx context.Context) error

	// Name returns a human-readable identifier for this sink.
	Name() string
}

// Deliverer sends one batch to a destination. The batch slice is only
// valid for the duration of the call.
type Deliverer interface {
	Deliver(ctx context.Context, batch []record.Record) error
}

// Bootstrapper is implemented by deliverers that must establish session
// state (a log stream, a token) before their first delivery. Bootstrap runs
// lazily on the first non-empty flush and is retried until it succeeds.
type Bootstrapper interface {
	Bootstrap(ctx context.Context) error
}

// DeliveryError reports a failed bootstrap or batch delivery.
type DeliveryError struct {
	Sink string
	Op   string // "bootstrap" or "deliver"
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("sink %s: %s: %v", e.Sink, e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// FinalizeError reports a failure of the final flush performed by Close.
type FinalizeError struct {
	Sink string
	Err  error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("sink %s: finalize: %v", e.Sink, e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }
