package s3blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/akopyan/signaldesk/internal/domain"
)

// minPartSize is the minimum multipart upload part size accepted by S3
// (5 MiB), applied to all parts except the last.
const minPartSize = 5 * 1024 * 1024

// Writer implements domain.BlobWriter backed by an S3-compatible store.
type Writer struct {
	client *Client
}

var _ domain.BlobWriter = (*Writer)(nil)

// NewWriter creates a blob writer using the given client.
func NewWriter(client *Client) *Writer {
	return &Writer{client: client}
}

// Put uploads data to the given path with a single PutObject call. Suitable
// for objects up to a few tens of megabytes.
func (w *Writer) Put(ctx context.Context, path string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(w.client.Bucket()),
		Key:    aws.String(path),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := w.client.S3().PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3blob: put %s: %w", path, err)
	}
	return nil
}

// PutMultipart uploads data using the SDK's managed multipart uploader.
// Part sizes below the S3 minimum are raised to minPartSize.
func (w *Writer) PutMultipart(ctx context.Context, path string, data []byte, partSize int64) error {
	if partSize < minPartSize {
		partSize = minPartSize
	}

	uploader := manager.NewUploader(w.client.S3(), func(u *manager.Uploader) {
		u.PartSize = partSize
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.client.Bucket()),
		Key:    aws.String(path),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart put %s: %w", path, err)
	}
	return nil
}
