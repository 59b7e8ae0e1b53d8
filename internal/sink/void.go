package sink

import (
	"context"

	"github.com/Geun-Oh/elbfilter/internal/record"
)

// VoidCapacity is the batch size of the void sink.
const VoidCapacity = 1024

// Void discards every batch. It is used for dry runs and benchmarks.
type Void struct {
	delivered int
}

// Deliver drops the batch.
func (v *Void) Deliver(_ context.Context, batch []record.Record) error {
	v.delivered += len(batch)
	return nil
}

// Delivered returns the number of records discarded so far.
func (v *Void) Delivered() int {
	return v.delivered
}
