package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ContentType is the MIME type of encoded exports.
const ContentType = "text/csv;charset=utf-8"

// FileSink writes exports into a download directory.
type FileSink struct {
	Dir string
}

// Deliver implements Sink.
func (s FileSink) Deliver(ctx context.Context, table Table, onRow func()) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	target := filepath.Join(dir, filepath.Base(table.Name))
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err := Encode(tmp, table, onRow); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}

	return target, nil
}

// ObjectPutter is the subset of the S3 client used by S3Sink.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads exports to a bucket. Failed uploads are retried with
// Retry; the zero value uses the common defaults.
type S3Sink struct {
	Client ObjectPutter
	Bucket string
	Region string
	Prefix string
	Retry  common.RetryOptions
}

// NewS3Sink builds an S3Sink from the default AWS credential chain.
func NewS3Sink(ctx context.Context, bucket, region, prefix string) (*S3Sink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Sink{
		Client: s3.NewFromConfig(cfg),
		Bucket: bucket,
		Region: region,
		Prefix: prefix,
		Retry:  common.ExportRetry,
	}, nil
}

// Deliver implements Sink.
func (s *S3Sink) Deliver(ctx context.Context, table Table, onRow func()) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, table, onRow); err != nil {
		return "", err
	}

	key := path.Join(strings.Trim(s.Prefix, "/"), table.Name)
	err := common.WithRetry(ctx, func() error {
		_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String(ContentType),
		})
		return err
	}, s.Retry)
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.Bucket, s.Region, key), nil
}

// TableWriter writes a header and rows into a named sheet and returns its URL.
type TableWriter interface {
	WriteTable(ctx context.Context, title string, header []string, rows []model.ExportRow) (string, error)
}

// SheetsSink publishes exports to a spreadsheet.
type SheetsSink struct {
	Writer TableWriter
}

// Deliver implements Sink.
func (s SheetsSink) Deliver(ctx context.Context, table Table, onRow func()) (string, error) {
	title := strings.TrimSuffix(table.Name, filepath.Ext(table.Name))
	url, err := s.Writer.WriteTable(ctx, title, table.Header, table.Rows)
	if err != nil {
		return "", err
	}
	if onRow != nil {
		for range table.Rows {
			onRow()
		}
	}
	return url, nil
}
