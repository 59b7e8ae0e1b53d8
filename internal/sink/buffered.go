package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/willibrandon/mtlog/core"

	"github.com/Geun-Oh/elbfilter/internal/buffer"
	"github.com/Geun-Oh/elbfilter/internal/logging"
	"github.com/Geun-Oh/elbfilter/internal/monitor"
	"github.com/Geun-Oh/elbfilter/internal/record"
)

// State is the lifecycle state of a Buffered sink.
type State int

const (
	StateEmpty State = iota
	StateAccumulating
	StateFull
	StateFinalizing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateFull:
		return "full"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Buffered implements Sink on top of a Deliverer: it accumulates up to
// capacity records and hands them over as one batch.
type Buffered struct {
	name         string
	batch        *buffer.Batch[record.Record]
	deliverer    Deliverer
	bootstrapped bool
	finalizing   bool
	closed       bool
	log          core.Logger
	metrics      *monitor.Metrics
}

var _ Sink = (*Buffered)(nil)

// Option configures a Buffered sink.
type Option func(*Buffered)

// WithLogger sets the logger used for flush diagnostics.
func WithLogger(l core.Logger) Option {
	return func(b *Buffered) {
		if l != nil {
			b.log = l
		}
	}
}

// WithMetrics reports flush outcomes to m.
func WithMetrics(m *monitor.Metrics) Option {
	return func(b *Buffered) {
		b.metrics = m
	}
}

// NewBuffered creates a sink named name that delivers batches of at most
// capacity records through d.
func NewBuffered(name string, capacity int, d Deliverer, opts ...Option) *Buffered {
	b := &Buffered{
		name:      name,
		batch:     buffer.NewBatch[record.Record](capacity),
		deliverer: d,
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.ForContext("Sink", name)
	return b
}

// Name returns the sink identifier.
func (b *Buffered) Name() string { return b.name }

// Len returns the number of buffered records.
func (b *Buffered) Len() int { return b.batch.Len() }

// Cap returns the buffer capacity.
func (b *Buffered) Cap() int { return b.batch.Cap() }

// Deliverer returns the destination batches are handed to.
func (b *Buffered) Deliverer() Deliverer { return b.deliverer }

// State returns the current lifecycle state.
func (b *Buffered) State() State {
	switch {
	case b.closed:
		return StateClosed
	case b.finalizing:
		return StateFinalizing
	case b.batch.Empty():
		return StateEmpty
	case b.batch.Full():
		return StateFull
	default:
		return StateAccumulating
	}
}

// Push buffers a copy of r. A full buffer is flushed synchronously first;
// if that flush fails the error is returned and r is not buffered.
func (b *Buffered) Push(ctx context.Context, r *record.Record) error {
	if b.closed {
		return fmt.Errorf("sink %s: %w", b.name, ErrClosed)
	}
	if b.batch.Full() {
		if err := b.Flush(ctx); err != nil {
			return err
		}
	}
	b.batch.Append(r.Clone())
	return nil
}

// Flush delivers the buffered records. An empty buffer is a no-op and does
// not trigger the bootstrap.
func (b *Buffered) Flush(ctx context.Context) error {
	if b.batch.Empty() {
		return nil
	}
	if !b.bootstrapped {
		if bs, ok := b.deliverer.(Bootstrapper); ok {
			if err := bs.Bootstrap(ctx); err != nil {
				return &DeliveryError{Sink: b.name, Op: "bootstrap", Err: err}
			}
		}
		b.bootstrapped = true
	}

	n := b.batch.Len()
	b.log.Debug("Flushing {Count} records", n)
	start := time.Now()
	err := b.deliverer.Deliver(ctx, b.batch.Items())
	b.metrics.ObserveFlush(b.name, n, time.Since(start), err)
	if err != nil {
		return &DeliveryError{Sink: b.name, Op: "deliver", Err: err}
	}
	b.batch.Reset()
	return nil
}

// Close finalizes the sink with one last flush. Records still buffered
// after a failed final flush are lost and the failure is returned as a
// *FinalizeError. Later calls return nil.
func (b *Buffered) Close(ctx context.Context) error {
	if b.closed {
		return nil
	}
	b.finalizing = true
	err := b.Flush(ctx)
	b.finalizing = false
	b.closed = true
	if err != nil {
		b.log.Error("Final flush dropped {Count} records: {Error}", b.batch.Len(), err)
		return &FinalizeError{Sink: b.name, Err: err}
	}
	return nil
}
