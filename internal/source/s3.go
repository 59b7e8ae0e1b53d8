package source

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/willibrandon/mtlog/core"

	"github.com/Geun-Oh/elbfilter/internal/logging"
)

// GetObjectAPI is the subset of the S3 client the S3 source uses.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source streams one object, as ALB writes them: gzipped, one file per
// load balancer node and five-minute interval.
type S3Source struct {
	client GetObjectAPI
	bucket string
	key    string
	log    core.Logger
}

// NewS3Source creates a source for s3://bucket/key. A nil logger is
// silent.
func NewS3Source(client GetObjectAPI, bucket, key string, log core.Logger) *S3Source {
	if log == nil {
		log = logging.Nop()
	}
	return &S3Source{client: client, bucket: bucket, key: key, log: log}
}

// Name returns the source identifier.
func (s *S3Source) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

// Open starts the download. The body is streamed, never held in memory.
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	s.log.Information("Starting to download {Object}", s.Name())
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", s.Name(), err)
	}
	if out.Body == nil {
		return nil, fmt.Errorf("get object %s: no body", s.Name())
	}
	return wrap(out.Body)
}
