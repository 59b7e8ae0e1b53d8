package source

import (
	"context"
	"fmt"
	"io"
	"os"
)

// FileSource reads a local access-log file, plain or gzipped.
type FileSource struct {
	path string
}

// NewFileSource creates a source that reads from a file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the source identifier.
func (s *FileSource) Name() string {
	return fmt.Sprintf("file:%s", s.path)
}

// Open opens the file.
func (s *FileSource) Open(context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", s.path, err)
	}
	return wrap(f)
}
