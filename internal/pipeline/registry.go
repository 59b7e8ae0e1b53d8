package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/willibrandon/mtlog/core"

	"github.com/Geun-Oh/elbfilter/internal/filter"
	"github.com/Geun-Oh/elbfilter/internal/logging"
	"github.com/Geun-Oh/elbfilter/internal/monitor"
	"github.com/Geun-Oh/elbfilter/internal/record"
	"github.com/Geun-Oh/elbfilter/internal/sink"
)

// SinkBuilder creates the sink for one pipeline output.
type SinkBuilder func(name string, cfg sink.OutputConfig, env sink.Env) (sink.Sink, error)

// BuildSink is the SinkBuilder backed by sink.Build.
func BuildSink(name string, cfg sink.OutputConfig, env sink.Env) (sink.Sink, error) {
	b, err := sink.Build(name, cfg, env)
	if err != nil {
		return nil, err
	}
	return b, nil
}

type route struct {
	name      string
	predicate *filter.Predicate
	sink      sink.Sink
}

// Registry holds the compiled pipelines and their sinks for one run. It is
// used from a single goroutine.
type Registry struct {
	scheme  *filter.Scheme
	routes  []route
	project []setter
	log     core.Logger
	metrics *monitor.Metrics
	closed  bool
}

// NewRegistry builds one sink per compiled pipeline, in order. When a
// builder fails, the sinks built so far are closed before returning.
func NewRegistry(compiled []Compiled, build SinkBuilder, env sink.Env) (*Registry, error) {
	if len(compiled) == 0 {
		return nil, errors.New("pipeline: no pipelines configured")
	}
	if build == nil {
		build = BuildSink
	}
	log := env.Logger
	if log == nil {
		log = logging.Nop()
	}

	scheme := compiled[0].Predicate.Scheme()
	r := &Registry{
		scheme:  scheme,
		project: projection(scheme),
		log:     log,
		metrics: env.Metrics,
	}
	for i, c := range compiled {
		if c.Predicate.Scheme() != scheme {
			_ = r.Close(context.Background())
			return nil, fmt.Errorf("pipeline %d (%s): %w", i, c.Name, filter.ErrSchemeMismatch)
		}
		s, err := build(c.Name, c.Output, env)
		if err != nil {
			if cerr := r.Close(context.Background()); cerr != nil {
				err = errors.Join(err, cerr)
			}
			return nil, fmt.Errorf("pipeline %d (%s): build sink: %w", i, c.Name, err)
		}
		r.routes = append(r.routes, route{name: c.Name, predicate: c.Predicate, sink: s})
	}
	return r, nil
}

// Len returns the number of pipelines.
func (r *Registry) Len() int {
	return len(r.routes)
}

// Sink returns the sink of the i-th pipeline.
func (r *Registry) Sink(i int) sink.Sink {
	return r.routes[i].sink
}

// Close finalizes every sink once, in pipeline order, and returns the
// failures joined together.
func (r *Registry) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, rt := range r.routes {
		if err := rt.sink.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type setter func(*filter.ExecutionContext, *record.Record) error

// projection returns the setters for the record fields scheme declares.
func projection(scheme *filter.Scheme) []setter {
	all := map[string]setter{
		filter.FieldStatusCode: func(c *filter.ExecutionContext, r *record.Record) error {
			return c.SetInt(filter.FieldStatusCode, int64(r.ELBStatusCode))
		},
		filter.FieldUserAgent: func(c *filter.ExecutionContext, r *record.Record) error {
			return c.SetBytes(filter.FieldUserAgent, r.UserAgent)
		},
		filter.FieldTargetGroupARN: func(c *filter.ExecutionContext, r *record.Record) error {
			return c.SetBytes(filter.FieldTargetGroupARN, r.TargetGroupARN)
		},
	}
	var out []setter
	for _, f := range scheme.Fields() {
		if s, ok := all[f.Name]; ok {
			out = append(out, s)
		}
	}
	return out
}
