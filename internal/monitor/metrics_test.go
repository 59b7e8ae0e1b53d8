package monitor

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordLine()
	m.RecordLine()
	m.RecordDecodeError()
	m.RecordMatch("errors")
	m.RecordMatch("errors")
	m.RecordMatch("mobile")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lines))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodeErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.matches.WithLabelValues("errors")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.matches.WithLabelValues("mobile")))
}

func TestMetricsObserveFlush(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveFlush("void", 20, 3*time.Millisecond, nil)
	m.ObserveFlush("void", 5, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.flushes.WithLabelValues("void")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flushErrors.WithLabelValues("void")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.flushed.WithLabelValues("void")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.flushLatency))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLine()
		m.RecordDecodeError()
		m.RecordMatch("p")
		m.ObserveFlush("s", 1, time.Second, nil)
	})
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RecordLine()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "elbfilter_lines_total 1")
}

func TestStatsAddAcrossInputs(t *testing.T) {
	s := NewStats()
	s.Add(10, 6, 0)
	s.Add(0, 0, 13)

	assert.Equal(t, uint64(2), s.Inputs())
	assert.Equal(t, uint64(10), s.Total())
	assert.Equal(t, uint64(6), s.Matched())
	assert.Equal(t, uint64(13), s.DecodeErrors())
	assert.Contains(t, s.Summary(), "Matches:       6")
}
