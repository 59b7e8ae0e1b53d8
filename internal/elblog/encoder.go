package elblog

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/Geun-Oh/elbfilter/internal/record"
)

// TimeLayout is the timestamp layout ALB writes.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Encoder writes records back out as ALB access-log lines.
type Encoder struct {
	w   *bufio.Writer
	buf []byte
}

// NewEncoder creates an encoder writing to w. Call Flush when done.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes r as one line terminated by '\n'.
func (e *Encoder) Encode(r *record.Record) error {
	e.buf = AppendRecord(e.buf[:0], r)
	e.buf = append(e.buf, '\n')
	_, err := e.w.Write(e.buf)
	return err
}

// Flush writes any buffered data to the underlying writer.
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

// Format returns r as a single ALB line without a trailing newline.
func Format(r *record.Record) string {
	return string(AppendRecord(nil, r))
}

// AppendRecord appends the ALB line for r to dst.
func AppendRecord(dst []byte, r *record.Record) []byte {
	dst = appendBare(dst, r.Type)
	dst = append(dst, ' ')
	dst = r.Time.UTC().AppendFormat(dst, TimeLayout)
	dst = append(dst, ' ')
	dst = appendBare(dst, r.ELB)
	dst = append(dst, ' ')
	dst = appendBare(dst, r.Client)
	dst = append(dst, ' ')
	dst = appendBare(dst, r.Target)
	dst = append(dst, ' ')
	dst = appendBare(dst, r.RequestProcessingTime.String())
	dst = append(dst, ' ')
	dst = appendBare(dst, r.TargetProcessingTime.String())
	dst = append(dst, ' ')
	dst = appendBare(dst, r.ResponseProcessingTime.String())
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(r.ELBStatusCode), 10)
	dst = append(dst, ' ')
	dst = appendBare(dst, r.TargetStatusCode.String())
	dst = append(dst, ' ')
	dst = strconv.AppendUint(dst, r.ReceivedBytes, 10)
	dst = append(dst, ' ')
	dst = strconv.AppendUint(dst, r.SentBytes, 10)
	dst = append(dst, ' ')
	dst = appendQuoted(dst, r.RequestLine)
	dst = append(dst, ' ')
	dst = appendQuoted(dst, r.UserAgent)
	dst = append(dst, ' ')
	dst = appendBare(dst, r.SSLCipher)
	dst = append(dst, ' ')
	dst = appendBare(dst, r.SSLProtocol)
	dst = append(dst, ' ')
	dst = appendBare(dst, r.TargetGroupARN)
	dst = append(dst, ' ')
	dst = appendQuoted(dst, r.TraceID)
	dst = append(dst, ' ')
	dst = appendQuoted(dst, r.DomainName)
	dst = append(dst, ' ')
	dst = appendQuoted(dst, r.ChosenCertARN)
	dst = append(dst, ' ')
	dst = appendBare(dst, r.MatchedRulePriority)
	dst = append(dst, ' ')
	dst = r.RequestCreationTime.UTC().AppendFormat(dst, TimeLayout)
	dst = append(dst, ' ')
	dst = appendQuoted(dst, r.ActionsExecuted)
	dst = append(dst, ' ')
	dst = appendQuoted(dst, r.ErrorReason)
	for _, f := range r.Trailing {
		dst = append(dst, ' ')
		dst = appendQuoted(dst, f)
	}
	return dst
}

// appendBare writes s unquoted unless it would not survive a round trip.
func appendBare(dst []byte, s string) []byte {
	if s == "" || strings.ContainsAny(s, " \"") {
		return appendQuoted(dst, s)
	}
	return append(dst, s...)
}

func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			dst = append(dst, '\\')
		}
		dst = append(dst, s[i])
	}
	return append(dst, '"')
}
