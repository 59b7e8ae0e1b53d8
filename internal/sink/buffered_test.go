package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willibrandon/mtlog/core"
	"github.com/willibrandon/mtlog/sinks"

	"github.com/Geun-Oh/elbfilter/internal/logging"
	"github.com/Geun-Oh/elbfilter/internal/monitor"
	"github.com/Geun-Oh/elbfilter/internal/record"
)

// recorder is a Deliverer that keeps every batch and can be told to fail.
type recorder struct {
	batches    [][]int // status codes per delivered batch
	calls      int
	bootstraps int
	failNext   error
	failBoot   error
}

func (r *recorder) Bootstrap(context.Context) error {
	r.bootstraps++
	if err := r.failBoot; err != nil {
		r.failBoot = nil
		return err
	}
	return nil
}

func (r *recorder) Deliver(_ context.Context, batch []record.Record) error {
	r.calls++
	if err := r.failNext; err != nil {
		r.failNext = nil
		return err
	}
	codes := make([]int, len(batch))
	for i := range batch {
		codes[i] = batch[i].ELBStatusCode
	}
	r.batches = append(r.batches, codes)
	return nil
}

func rec(code int) *record.Record {
	return &record.Record{ELBStatusCode: code}
}

func TestPushFlushesWhenFull(t *testing.T) {
	ctx := context.Background()
	d := &recorder{}
	s := NewBuffered("test", 3, d)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Push(ctx, rec(i)))
	}
	assert.Equal(t, StateFull, s.State())
	assert.Zero(t, d.calls, "a full buffer is flushed on the next push, not before")

	require.NoError(t, s.Push(ctx, rec(4)))
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, [][]int{{1, 2, 3}}, d.batches)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, StateAccumulating, s.State())
}

func TestPushLengthProgression(t *testing.T) {
	ctx := context.Background()
	d := &recorder{}
	const capacity = 4
	s := NewBuffered("test", capacity, d)

	for i := 0; i < 3*capacity+1; i++ {
		old := s.Len()
		require.NoError(t, s.Push(ctx, rec(i)))
		assert.Equal(t, old%capacity+1, s.Len())
	}
	assert.Equal(t, 3, d.calls)
}

func TestFlushEmptyIsNoop(t *testing.T) {
	d := &recorder{}
	s := NewBuffered("test", 3, d)

	require.NoError(t, s.Flush(context.Background()))
	assert.Zero(t, d.calls)
	assert.Zero(t, d.bootstraps, "bootstrap waits for the first non-empty flush")
}

func TestFlushFailureKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	d := &recorder{failNext: errors.New("throttled")}
	s := NewBuffered("test", 2, d)

	require.NoError(t, s.Push(ctx, rec(1)))
	require.NoError(t, s.Push(ctx, rec(2)))

	err := s.Push(ctx, rec(3))
	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "test", de.Sink)
	assert.Equal(t, "deliver", de.Op)
	assert.ErrorContains(t, err, "throttled")
	assert.Equal(t, 2, s.Len(), "failed flush must not clear or append")

	// The next push retries the same batch.
	require.NoError(t, s.Push(ctx, rec(3)))
	assert.Equal(t, [][]int{{1, 2}}, d.batches)
	assert.Equal(t, 1, s.Len())
}

func TestBootstrapRunsOnceAndRetries(t *testing.T) {
	ctx := context.Background()
	d := &recorder{failBoot: errors.New("no such group")}
	s := NewBuffered("test", 1, d)

	require.NoError(t, s.Push(ctx, rec(1)))
	err := s.Flush(ctx)
	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "bootstrap", de.Op)
	assert.Zero(t, d.calls)

	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Push(ctx, rec(2)))
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 2, d.bootstraps)
	assert.Equal(t, 2, d.calls)
}

func TestCloseFlushesRemainder(t *testing.T) {
	ctx := context.Background()
	d := &recorder{}
	s := NewBuffered("test", 10, d)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.Push(ctx, rec(i)))
	}
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, [][]int{{0, 1, 2, 3}}, d.batches)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, StateClosed, s.State())

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, d.calls, "close is idempotent")
	assert.ErrorIs(t, s.Push(ctx, rec(9)), ErrClosed)
}

func TestCloseEmptyDeliversNothing(t *testing.T) {
	d := &recorder{}
	s := NewBuffered("test", 10, d)
	require.NoError(t, s.Close(context.Background()))
	assert.Zero(t, d.calls)
	assert.Zero(t, d.bootstraps)
}

func TestCloseFailureIsReported(t *testing.T) {
	ctx := context.Background()
	mem := sinks.NewMemorySink()
	d := &recorder{failNext: errors.New("access denied")}
	s := NewBuffered("test", 10, d, WithLogger(logging.NewWithSink(mem)))

	require.NoError(t, s.Push(ctx, rec(1)))
	err := s.Close(ctx)
	var fe *FinalizeError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "test", fe.Sink)
	assert.ErrorContains(t, err, "access denied")

	assert.True(t, mem.HasEvent(func(e *core.LogEvent) bool {
		return e.Level == core.ErrorLevel && e.Properties["Sink"] == "test"
	}))
}

func TestPushStoresCopies(t *testing.T) {
	ctx := context.Background()
	d := &recorder{}
	s := NewBuffered("test", 2, d)

	r := rec(200)
	require.NoError(t, s.Push(ctx, r))
	r.ELBStatusCode = 500
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, [][]int{{200}}, d.batches)
}

func TestFlushMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	s := NewBuffered("metered", 2, &recorder{}, WithMetrics(monitor.NewMetrics(reg)))

	require.NoError(t, s.Push(ctx, rec(1)))
	require.NoError(t, s.Close(ctx))

	n, err := testutil.GatherAndCount(reg, "elbfilter_sink_flushes_total", "elbfilter_sink_records_delivered_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
