// Package record defines the Record type produced by the ELB log decoder.
package record

import (
	"strings"
	"time"
)

// Placeholder is the token ALB writes for fields that do not apply to a request.
const Placeholder = "-"

// Record is one decoded ALB access-log line. Fields are listed in wire order.
// A Record is never mutated after decoding.
type Record struct {
	Type                   string
	Time                   time.Time
	ELB                    string
	Client                 string // ip:port
	Target                 string // ip:port or "-"
	RequestProcessingTime  Maybe[float64]
	TargetProcessingTime   Maybe[float64]
	ResponseProcessingTime Maybe[float64]
	ELBStatusCode          int
	TargetStatusCode       Maybe[int]
	ReceivedBytes          uint64
	SentBytes              uint64
	RequestLine            string // "METHOD URL PROTOCOL"
	UserAgent              string
	SSLCipher              string
	SSLProtocol            string
	TargetGroupARN         string
	TraceID                string
	DomainName             string
	ChosenCertARN          string
	MatchedRulePriority    string
	RequestCreationTime    time.Time
	ActionsExecuted        string
	ErrorReason            string

	// Trailing holds fields ALB appended after error_reason
	// (target:port_list, classification, ...).
	Trailing []string
}

// Request is the split form of Record.RequestLine.
type Request struct {
	Method   string
	URL      string
	Protocol string
}

// Request splits the request descriptor into method, URL and protocol.
// Missing parts are left empty.
func (r *Record) Request() Request {
	var req Request
	parts := strings.SplitN(r.RequestLine, " ", 3)
	switch len(parts) {
	case 3:
		req.Protocol = parts[2]
		fallthrough
	case 2:
		req.URL = parts[1]
		fallthrough
	case 1:
		req.Method = parts[0]
	}
	return req
}

// TargetGroupName returns the last ':' separated segment of the target
// group ARN ("targetgroup/name/id"), or false for the placeholder.
func (r *Record) TargetGroupName() (string, bool) {
	if r.TargetGroupARN == "" || r.TargetGroupARN == Placeholder {
		return "", false
	}
	i := strings.LastIndexByte(r.TargetGroupARN, ':')
	return r.TargetGroupARN[i+1:], true
}

// Clone returns a copy that does not share the Trailing slice.
func (r *Record) Clone() Record {
	c := *r
	if r.Trailing != nil {
		c.Trailing = append([]string(nil), r.Trailing...)
	}
	return c
}
