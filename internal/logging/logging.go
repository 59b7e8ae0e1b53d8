// Package logging builds the structured logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/willibrandon/mtlog"
	"github.com/willibrandon/mtlog/core"
	"github.com/willibrandon/mtlog/sinks"
)

// ParseLevel maps a level name to an mtlog level. Both Serilog-style names
// (Verbose, Information) and short forms (trace, info, warn) are accepted.
func ParseLevel(s string) (core.LogEventLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "trace":
		return core.VerboseLevel, nil
	case "debug":
		return core.DebugLevel, nil
	case "", "information", "info":
		return core.InformationLevel, nil
	case "warning", "warn":
		return core.WarningLevel, nil
	case "error":
		return core.ErrorLevel, nil
	case "fatal":
		return core.FatalLevel, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
}

// New returns a logger writing to w at the given minimum level. A nil w
// means stderr, which keeps stdout free for record output.
func New(w io.Writer, level string) (core.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	return mtlog.New(
		mtlog.WithSink(sinks.NewConsoleSinkWithWriter(w)),
		mtlog.WithMinimumLevel(lvl),
	), nil
}

// NewWithSink returns a logger that emits every level to sink. Tests pass a
// sinks.MemorySink here.
func NewWithSink(sink core.LogEventSink) core.Logger {
	return mtlog.New(
		mtlog.WithSink(sink),
		mtlog.WithMinimumLevel(core.VerboseLevel),
	)
}

// Nop returns a logger without sinks.
func Nop() core.Logger {
	return mtlog.New()
}
