// Package source opens the access-log inputs: local files, stdin and S3
// objects. Gzip-compressed inputs are detected and decompressed
// transparently.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Source opens one access-log input as a stream of plain text lines.
type Source interface {
	// Open returns the decompressed contents. The caller closes it.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Name returns a human-readable identifier for this source.
	Name() string
}

var gzipMagic = []byte{0x1f, 0x8b}

// Decompress returns r unchanged unless it starts with the gzip magic
// bytes, in which case every gzip member is decompressed in turn. Closing
// the result does not close r.
func Decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("source: peek: %w", err)
	}
	if len(head) < len(gzipMagic) || head[0] != gzipMagic[0] || head[1] != gzipMagic[1] {
		return io.NopCloser(br), nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("source: gzip: %w", err)
	}
	return zr, nil
}

// stacked closes the decompressor and then the underlying input.
type stacked struct {
	io.Reader
	closers []io.Closer
}

func (s *stacked) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func wrap(raw io.ReadCloser) (io.ReadCloser, error) {
	dec, err := Decompress(raw)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return &stacked{Reader: dec, closers: []io.Closer{dec, raw}}, nil
}
