package source

import (
	"context"
	"io"
	"os"
)

// StdinSource reads access-log lines piped into the process.
type StdinSource struct {
	in io.Reader
}

// NewStdinSource creates a source that reads from stdin.
func NewStdinSource() *StdinSource {
	return &StdinSource{in: os.Stdin}
}

// Name returns the source identifier.
func (s *StdinSource) Name() string {
	return "stdin"
}

// Open wraps stdin. Closing the result leaves stdin open.
func (s *StdinSource) Open(context.Context) (io.ReadCloser, error) {
	return Decompress(s.in)
}
