// Package monitor provides run statistics and Prometheus metrics for the
// dispatch engine.
package monitor

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats aggregates counts across every input processed in one run.
// Safe for concurrent use.
type Stats struct {
	inputs       atomic.Uint64
	totalLines   atomic.Uint64
	matchedLines atomic.Uint64
	decodeErrors atomic.Uint64
	startTime    time.Time
}

// NewStats creates a new statistics collector.
func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
	}
}

// Add folds the counts of one processed input into the totals.
func (s *Stats) Add(total, matched, decodeErrors uint64) {
	s.inputs.Add(1)
	s.totalLines.Add(total)
	s.matchedLines.Add(matched)
	s.decodeErrors.Add(decodeErrors)
}

// Inputs returns the number of inputs folded in so far.
func (s *Stats) Inputs() uint64 {
	return s.inputs.Load()
}

// Total returns the number of successfully decoded lines.
func (s *Stats) Total() uint64 {
	return s.totalLines.Load()
}

// Matched returns the number of (record, pipeline) matches.
func (s *Stats) Matched() uint64 {
	return s.matchedLines.Load()
}

// DecodeErrors returns the number of skipped lines.
func (s *Stats) DecodeErrors() uint64 {
	return s.decodeErrors.Load()
}

// Elapsed returns the time since monitoring started.
func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.startTime)
}

// Rate returns decoded lines per second.
func (s *Stats) Rate() float64 {
	elapsed := s.Elapsed().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(s.Total()) / elapsed
}

// Summary returns a formatted summary string.
func (s *Stats) Summary() string {
	return fmt.Sprintf(
		"── Summary ──\n"+
			"  Inputs:        %d\n"+
			"  Total lines:   %d\n"+
			"  Matches:       %d\n"+
			"  Skipped lines: %d\n"+
			"  Duration:      %s\n"+
			"  Throughput:    %.0f lines/s\n"+
			"─────────────",
		s.Inputs(), s.Total(), s.Matched(), s.DecodeErrors(),
		s.Elapsed().Round(time.Millisecond),
		s.Rate(),
	)
}
