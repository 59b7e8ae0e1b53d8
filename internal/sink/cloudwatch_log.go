package sink

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/google/uuid"
	"github.com/willibrandon/mtlog/core"

	"github.com/Geun-Oh/elbfilter/internal/elblog"
	"github.com/Geun-Oh/elbfilter/internal/logging"
	"github.com/Geun-Oh/elbfilter/internal/record"
)

// CloudWatchLogCapacity is the number of events sent per PutLogEvents call.
const CloudWatchLogCapacity = 10

// LogsAPI is the subset of the CloudWatch Logs client the log sink uses.
type LogsAPI interface {
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchLog writes records as log events into a stream it creates on
// first use. Each process gets its own stream, "<prefix>-<uuid>".
type CloudWatchLog struct {
	client LogsAPI
	group  string
	stream string
	token  *string
	log    core.Logger
}

// NewCloudWatchLog creates a log deliverer. A nil logger discards the
// rejected-event reports.
func NewCloudWatchLog(client LogsAPI, group, streamPrefix string, log core.Logger) *CloudWatchLog {
	if log == nil {
		log = logging.Nop()
	}
	return &CloudWatchLog{
		client: client,
		group:  group,
		stream: streamPrefix + "-" + uuid.NewString(),
		log:    log,
	}
}

// Stream returns the name of the log stream events are written to.
func (c *CloudWatchLog) Stream() string {
	return c.stream
}

// Bootstrap creates the log stream. A stream that already exists is
// reused.
func (c *CloudWatchLog) Bootstrap(ctx context.Context) error {
	_, err := c.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(c.group),
		LogStreamName: aws.String(c.stream),
	})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("create log stream %s/%s: %w", c.group, c.stream, err)
	}
	return nil
}

// Deliver sends the batch ordered by request time, carrying the sequence
// token returned by the previous call.
func (c *CloudWatchLog) Deliver(ctx context.Context, batch []record.Record) error {
	events := make([]types.InputLogEvent, 0, len(batch))
	for i := range batch {
		events = append(events, types.InputLogEvent{
			Message:   aws.String(elblog.Format(&batch[i])),
			Timestamp: aws.Int64(batch[i].Time.UnixMilli()),
		})
	}
	slices.SortStableFunc(events, func(a, b types.InputLogEvent) int {
		return cmp.Compare(aws.ToInt64(a.Timestamp), aws.ToInt64(b.Timestamp))
	})

	out, err := c.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogEvents:     events,
		LogGroupName:  aws.String(c.group),
		LogStreamName: aws.String(c.stream),
		SequenceToken: c.token,
	})
	if err != nil {
		return fmt.Errorf("put log events to %s/%s: %w", c.group, c.stream, err)
	}
	c.token = out.NextSequenceToken

	if r := out.RejectedLogEventsInfo; r != nil {
		c.log.Error("Rejected log events in {Stream}: expired up to {Expired}, too new from {TooNew}, too old up to {TooOld}",
			c.stream, indexOrNone(r.ExpiredLogEventEndIndex), indexOrNone(r.TooNewLogEventStartIndex), indexOrNone(r.TooOldLogEventEndIndex))
	}
	return nil
}

func indexOrNone(i *int32) string {
	if i == nil {
		return "none"
	}
	return fmt.Sprint(*i)
}
