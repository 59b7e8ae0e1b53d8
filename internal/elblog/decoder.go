// Package elblog reads and writes Application Load Balancer access-log lines.
package elblog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/Geun-Oh/elbfilter/internal/record"
)

// NumFields is the number of positional fields every line must carry.
// Anything past it is kept in Record.Trailing.
const NumFields = 24

var (
	errUnterminatedQuote = errors.New("unterminated quoted field")
	errWrongArity        = errors.New("wrong arity")
)

// DecodeError reports a single line that could not be decoded.
// The decoder keeps going after returning one.
type DecodeError struct {
	Line  int
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("elblog: line %d: field %s: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("elblog: line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder turns a byte stream into a single-pass sequence of records.
// Only the current line is held in memory.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
	fields  []string
}

// NewDecoder creates a decoder reading lines from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{
		scanner: scanner,
		fields:  make([]string, 0, NumFields+8),
	}
}

// Line returns the number of the last line read, starting at 1.
func (d *Decoder) Line() int {
	return d.line
}

// Next decodes the next non-blank line. It returns a *DecodeError for a
// malformed line, io.EOF at the end of input, and any other error when the
// underlying reader fails.
func (d *Decoder) Next() (*record.Record, error) {
	for d.scanner.Scan() {
		d.line++
		text := strings.TrimRight(d.scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		return d.decode(text)
	}
	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("elblog: read line %d: %w", d.line+1, err)
	}
	return nil, io.EOF
}

// All returns the remaining records as a lazy sequence. Decode errors are
// yielded in place of the bad line and iteration continues; a read error is
// yielded once and ends the sequence.
func (d *Decoder) All() iter.Seq2[*record.Record, error] {
	return func(yield func(*record.Record, error) bool) {
		for {
			rec, err := d.Next()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) {
				return
			}
			var de *DecodeError
			if err != nil && !errors.As(err, &de) {
				return
			}
		}
	}
}

// DecodeLine decodes a single line outside of a stream. Line numbers in
// returned errors are 1.
func DecodeLine(line string) (*record.Record, error) {
	d := &Decoder{line: 1}
	return d.decode(line)
}

func (d *Decoder) decode(line string) (*record.Record, error) {
	fields, err := splitFields(line, d.fields[:0])
	d.fields = fields[:0]
	if err != nil {
		return nil, &DecodeError{Line: d.line, Err: err}
	}
	if len(fields) < NumFields {
		return nil, &DecodeError{
			Line: d.line,
			Err:  fmt.Errorf("%w: got %d fields, want at least %d", errWrongArity, len(fields), NumFields),
		}
	}

	fail := func(name string, err error) (*record.Record, error) {
		return nil, &DecodeError{Line: d.line, Field: name, Err: err}
	}

	rec := &record.Record{
		Type:                   fields[0],
		ELB:                    fields[2],
		Client:                 fields[3],
		Target:                 fields[4],
		RequestProcessingTime:  record.ParseFloat(fields[5]),
		TargetProcessingTime:   record.ParseFloat(fields[6]),
		ResponseProcessingTime: record.ParseFloat(fields[7]),
		TargetStatusCode:       record.ParseInt(fields[9]),
		RequestLine:            fields[12],
		UserAgent:              fields[13],
		SSLCipher:              fields[14],
		SSLProtocol:            fields[15],
		TargetGroupARN:         fields[16],
		TraceID:                fields[17],
		DomainName:             fields[18],
		ChosenCertARN:          fields[19],
		MatchedRulePriority:    fields[20],
		ActionsExecuted:        fields[22],
		ErrorReason:            fields[23],
	}

	if rec.Time, err = time.Parse(time.RFC3339Nano, fields[1]); err != nil {
		return fail("time", err)
	}
	if rec.ELBStatusCode, err = strconv.Atoi(fields[8]); err != nil {
		return fail("elb_status_code", err)
	}
	if rec.ReceivedBytes, err = strconv.ParseUint(fields[10], 10, 64); err != nil {
		return fail("received_bytes", err)
	}
	if rec.SentBytes, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return fail("sent_bytes", err)
	}
	if rec.RequestCreationTime, err = time.Parse(time.RFC3339Nano, fields[21]); err != nil {
		return fail("request_creation_time", err)
	}
	if len(fields) > NumFields {
		rec.Trailing = append([]string(nil), fields[NumFields:]...)
	}
	return rec, nil
}

// splitFields splits a line on single spaces. A field that starts with '"'
// runs to the closing quote and may contain spaces; inside it a backslash
// escapes the next byte.
func splitFields(line string, dst []string) ([]string, error) {
	i := 0
	for i < len(line) {
		if line[i] == '"' {
			var sb strings.Builder
			j := i + 1
			closed := false
			for j < len(line) {
				c := line[j]
				if c == '\\' && j+1 < len(line) {
					sb.WriteByte(line[j+1])
					j += 2
					continue
				}
				j++
				if c == '"' {
					closed = true
					break
				}
				sb.WriteByte(c)
			}
			if !closed {
				return dst, errUnterminatedQuote
			}
			dst = append(dst, sb.String())
			i = j
			if i < len(line) && line[i] != ' ' {
				return dst, fmt.Errorf("unexpected %q after quoted field at column %d", line[i], i+1)
			}
		} else {
			j := strings.IndexByte(line[i:], ' ')
			if j < 0 {
				dst = append(dst, line[i:])
				break
			}
			dst = append(dst, line[i:i+j])
			i += j
		}
		// Skip the separator.
		i++
	}
	return dst, nil
}
