package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/akopyan/signaldesk/internal/domain"
)

// settledPositionSource lists closed positions for archival.
type settledPositionSource interface {
	ListClosed(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error)
}

// settledExposureSource lists settled exposures for archival.
type settledExposureSource interface {
	ListSettled(ctx context.Context, opts domain.ListOpts) ([]domain.Exposure, error)
}

// Archiver exports settled ledger records and analytics reports to blob
// storage as JSONL and JSON objects. Deletion from the primary store is
// intentionally not performed here.
type Archiver struct {
	writer    domain.BlobWriter
	positions settledPositionSource
	exposures settledExposureSource
	audit     domain.AuditStore
	logger    *slog.Logger
}

var _ domain.Archiver = (*Archiver)(nil)

// NewArchiver creates an archiver writing through the given blob writer.
func NewArchiver(writer domain.BlobWriter, positions settledPositionSource, exposures settledExposureSource, audit domain.AuditStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		positions: positions,
		exposures: exposures,
		audit:     audit,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveSettled exports positions settled before the cutoff, along with
// their exposures, as JSONL objects. It returns the total number of records
// written across both files.
func (a *Archiver) ArchiveSettled(ctx context.Context, before time.Time) (int64, error) {
	positions, err := a.positions.ListClosed(ctx, domain.ListOpts{Until: &before})
	if err != nil {
		return 0, fmt.Errorf("s3blob: list closed positions: %w", err)
	}
	exposures, err := a.exposures.ListSettled(ctx, domain.ListOpts{Until: &before})
	if err != nil {
		return 0, fmt.Errorf("s3blob: list settled exposures: %w", err)
	}

	var total int64

	if len(positions) > 0 {
		data, err := marshalJSONL(positions)
		if err != nil {
			return 0, fmt.Errorf("s3blob: marshal positions: %w", err)
		}
		path := archivePath("positions", before)
		if err := a.writer.Put(ctx, path, data, "application/x-ndjson"); err != nil {
			return 0, err
		}
		total += int64(len(positions))
		a.logger.Info("archived positions",
			slog.String("path", path),
			slog.Int("count", len(positions)))
	}

	if len(exposures) > 0 {
		data, err := marshalJSONL(exposures)
		if err != nil {
			return 0, fmt.Errorf("s3blob: marshal exposures: %w", err)
		}
		path := archivePath("exposures", before)
		if err := a.writer.Put(ctx, path, data, "application/x-ndjson"); err != nil {
			return 0, err
		}
		total += int64(len(exposures))
		a.logger.Info("archived exposures",
			slog.String("path", path),
			slog.Int("count", len(exposures)))
	}

	if total > 0 && a.audit != nil {
		if err := a.audit.Log(ctx, "ledger_archived", map[string]any{
			"before":    before.Format(time.RFC3339),
			"positions": len(positions),
			"exposures": len(exposures),
		}); err != nil {
			a.logger.Warn("audit log failed", slog.String("error", err.Error()))
		}
	}

	return total, nil
}

// SnapshotReport stores an analytics report as a pretty-printed JSON object
// under reports/, keyed by name and snapshot date.
func (a *Archiver) SnapshotReport(ctx context.Context, name string, report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal report %s: %w", name, err)
	}

	path := fmt.Sprintf("reports/%s/%s.json", time.Now().UTC().Format("2006/01"), name)
	if err := a.writer.Put(ctx, path, data, "application/json"); err != nil {
		return err
	}

	a.logger.Info("snapshot report stored",
		slog.String("path", path),
		slog.Int("bytes", len(data)))
	return nil
}

// archivePath builds the object key for an archive export, partitioned by
// the cutoff month.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s/%s.jsonl", kind, before.UTC().Format("2006/01"), before.UTC().Format("2006-01-02"))
}

// marshalJSONL serializes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
