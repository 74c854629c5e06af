package domain

import (
	"context"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	PutMultipart(ctx context.Context, path string, data []byte, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver moves settled ledger history to cold storage and snapshots
// performance reports.
type Archiver interface {
	ArchiveSettled(ctx context.Context, before time.Time) (int64, error)
	SnapshotReport(ctx context.Context, name string, report any) error
}
