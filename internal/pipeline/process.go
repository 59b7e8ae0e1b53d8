package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Geun-Oh/elbfilter/internal/elblog"
	"github.com/Geun-Oh/elbfilter/internal/filter"
)

// Summary counts what one Process call saw. MatchedLines counts
// (record, pipeline) matches, so a record routed to two pipelines counts
// twice.
type Summary struct {
	TotalLines   uint64 `json:"total_lines"`
	MatchedLines uint64 `json:"matched_lines"`
	DecodeErrors uint64 `json:"decode_errors"`
}

// Add accumulates o into s.
func (s *Summary) Add(o Summary) {
	s.TotalLines += o.TotalLines
	s.MatchedLines += o.MatchedLines
	s.DecodeErrors += o.DecodeErrors
}

// Process decodes r line by line and pushes every record to the sink of
// each pipeline whose filter matches it. Malformed lines are logged and
// skipped. A push failure stops processing; records already pushed stay
// where they are. A cancelled ctx stops Process before the next record.
// Sinks are not closed here, see Registry.Close.
func Process(ctx context.Context, r io.Reader, reg *Registry) (Summary, error) {
	var sum Summary
	if reg.closed {
		return sum, errors.New("pipeline: registry is closed")
	}
	ectx := filter.NewExecutionContext(reg.scheme)
	dec := elblog.NewDecoder(r)

	for rec, err := range dec.All() {
		if err != nil {
			var de *elblog.DecodeError
			if !errors.As(err, &de) {
				return sum, err
			}
			sum.DecodeErrors++
			reg.metrics.RecordDecodeError()
			reg.log.Verbose("Skipping line {Line}: {Error}", de.Line, err)
			continue
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		sum.TotalLines++
		reg.metrics.RecordLine()

		ectx.Reset()
		for _, set := range reg.project {
			if err := set(ectx, rec); err != nil {
				return sum, fmt.Errorf("pipeline: project line %d: %w", dec.Line(), err)
			}
		}

		for _, rt := range reg.routes {
			ok, err := rt.predicate.Execute(ectx)
			if err != nil {
				return sum, fmt.Errorf("pipeline %s: evaluate line %d: %w", rt.name, dec.Line(), err)
			}
			if !ok {
				continue
			}
			if err := rt.sink.Push(ctx, rec); err != nil {
				return sum, fmt.Errorf("pipeline %s: push to %s: %w", rt.name, rt.sink.Name(), err)
			}
			sum.MatchedLines++
			reg.metrics.RecordMatch(rt.name)
		}
	}
	return sum, nil
}
