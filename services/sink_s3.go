package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/risiti/risiti-backend/types"
)

// S3ObjectPutter is the slice of the S3 client the sink uses; tests
// substitute a fake.
type S3ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink writes each event's payload as a timestamped JSON object. Keys are
// derived from event type, date, and submission id so a bucket listing reads
// as an event log.
type S3Sink struct {
	client S3ObjectPutter
	bucket string
}

// NewS3Sink creates a sink backed by a real S3 client with static credentials.
func NewS3Sink(bucket, region, accessKeyID, secretAccessKey string) *S3Sink {
	client := s3.New(s3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
	})
	return &S3Sink{client: client, bucket: bucket}
}

// NewS3SinkWithClient creates a sink with an injected client, for tests.
func NewS3SinkWithClient(client S3ObjectPutter, bucket string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket}
}

func (s *S3Sink) Name() string {
	return "s3"
}

func (s *S3Sink) Deliver(ctx context.Context, event types.Event) error {
	key := fmt.Sprintf("%s/%s/%s.json",
		event.Type,
		event.Timestamp.Format("2006-01-02"),
		event.SubmissionID,
	)

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, event.Payload, "", "  "); err != nil {
		return fmt.Errorf("failed to format event payload: %w", err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pretty.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object failed: %w", err)
	}
	return nil
}
