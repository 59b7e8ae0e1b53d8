package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/valyala/fastjson"

	"github.com/Geun-Oh/elbfilter/internal/elblog"
	"github.com/Geun-Oh/elbfilter/internal/record"
)

// Output formats supported by the stdout sink.
const (
	FormatLog  = "log"
	FormatJSON = "json"
)

// StdoutCapacity is the batch size of the stdout sink.
const StdoutCapacity = 50

// Stdout writes each record as one line: the original ALB format or a JSON
// object.
type Stdout struct {
	w      *bufio.Writer
	format string
	arena  fastjson.Arena
	line   []byte
}

// NewStdout creates a stdout deliverer. A nil w means os.Stdout.
func NewStdout(w io.Writer, format string) (*Stdout, error) {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case "":
		format = FormatLog
	case FormatLog, FormatJSON:
	default:
		return nil, fmt.Errorf("stdout: unknown format %q", format)
	}
	return &Stdout{w: bufio.NewWriter(w), format: format}, nil
}

// Deliver writes the batch and flushes the writer.
func (s *Stdout) Deliver(_ context.Context, batch []record.Record) error {
	for i := range batch {
		s.line = s.line[:0]
		if s.format == FormatJSON {
			s.line = s.appendJSON(s.line, &batch[i])
		} else {
			s.line = elblog.AppendRecord(s.line, &batch[i])
		}
		s.line = append(s.line, '\n')
		if _, err := s.w.Write(s.line); err != nil {
			return fmt.Errorf("stdout: write: %w", err)
		}
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("stdout: flush: %w", err)
	}
	return nil
}

func (s *Stdout) appendJSON(dst []byte, r *record.Record) []byte {
	a := &s.arena
	defer a.Reset()

	str := a.NewString
	o := a.NewObject()
	o.Set("request_type", str(r.Type))
	o.Set("timestamp", str(r.Time.UTC().Format(elblog.TimeLayout)))
	o.Set("elb_name", str(r.ELB))
	o.Set("client", str(r.Client))
	o.Set("target", str(r.Target))
	o.Set("request_processing_time", maybeFloat(a, r.RequestProcessingTime))
	o.Set("target_processing_time", maybeFloat(a, r.TargetProcessingTime))
	o.Set("response_processing_time", maybeFloat(a, r.ResponseProcessingTime))
	o.Set("elb_status_code", a.NewNumberInt(r.ELBStatusCode))
	o.Set("target_status_code", maybeInt(a, r.TargetStatusCode))
	o.Set("received_bytes", a.NewNumberString(strconv.FormatUint(r.ReceivedBytes, 10)))
	o.Set("sent_bytes", a.NewNumberString(strconv.FormatUint(r.SentBytes, 10)))
	o.Set("request", str(r.RequestLine))
	o.Set("user_agent", str(r.UserAgent))
	o.Set("ssl_cipher", str(r.SSLCipher))
	o.Set("ssl_protocol", str(r.SSLProtocol))
	o.Set("target_group_arn", str(r.TargetGroupARN))
	o.Set("trace_id", str(r.TraceID))
	o.Set("domain_name", str(r.DomainName))
	o.Set("chosen_cert_arn", str(r.ChosenCertARN))
	o.Set("matched_rule_priority", str(r.MatchedRulePriority))
	o.Set("request_creation_time", str(r.RequestCreationTime.UTC().Format(elblog.TimeLayout)))
	o.Set("actions_executed", str(r.ActionsExecuted))
	o.Set("error_reason", str(r.ErrorReason))
	if len(r.Trailing) > 0 {
		arr := a.NewArray()
		for i, f := range r.Trailing {
			arr.SetArrayItem(i, str(f))
		}
		o.Set("trailing", arr)
	}
	return o.MarshalTo(dst)
}

// maybeFloat renders a parsed number as a JSON number, or the placeholder
// as a string. The raw token is not reused: ALB text such as ".5" or "+1"
// parses but is not valid JSON.
func maybeFloat(a *fastjson.Arena, m record.Maybe[float64]) *fastjson.Value {
	if v, ok := m.Get(); ok {
		return a.NewNumberFloat64(v)
	}
	return placeholder(a, m.String())
}

func maybeInt(a *fastjson.Arena, m record.Maybe[int]) *fastjson.Value {
	if v, ok := m.Get(); ok {
		return a.NewNumberInt(v)
	}
	return placeholder(a, m.String())
}

func placeholder(a *fastjson.Arena, raw string) *fastjson.Value {
	if raw == "" {
		raw = record.Placeholder
	}
	return a.NewString(raw)
}
