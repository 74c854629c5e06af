package s3blob

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akopyan/signaldesk/internal/domain"
)

type memWriter struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemWriter() *memWriter {
	return &memWriter{objects: make(map[string][]byte)}
}

func (w *memWriter) Put(_ context.Context, path string, data []byte, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.objects[path] = data
	return nil
}

func (w *memWriter) PutMultipart(ctx context.Context, path string, data []byte, _ int64) error {
	return w.Put(ctx, path, data, "")
}

type stubPositions struct {
	closed []domain.Position
}

func (s *stubPositions) ListClosed(_ context.Context, _ domain.ListOpts) ([]domain.Position, error) {
	return s.closed, nil
}

type stubExposures struct {
	settled []domain.Exposure
}

func (s *stubExposures) ListSettled(_ context.Context, _ domain.ListOpts) ([]domain.Exposure, error) {
	return s.settled, nil
}

type stubAudit struct {
	mu     sync.Mutex
	events []string
}

func (s *stubAudit) Log(_ context.Context, event string, _ map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubAudit) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveSettledWritesJSONL(t *testing.T) {
	closedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	positions := &stubPositions{closed: []domain.Position{
		{ID: "p1", Pair: "EUR/USD", Status: domain.PositionStatusTPHit, ClosedAt: &closedAt},
		{ID: "p2", Pair: "GBP/USD", Status: domain.PositionStatusSLHit, ClosedAt: &closedAt},
	}}
	exposures := &stubExposures{settled: []domain.Exposure{
		{ID: "e1", PositionID: "p1", UserID: "u1", Result: domain.ResultWin},
	}}
	writer := newMemWriter()
	audit := &stubAudit{}

	arch := NewArchiver(writer, positions, exposures, audit, discardLogger())

	cutoff := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	n, err := arch.ArchiveSettled(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	posData, ok := writer.objects["archive/positions/2025/04/2025-04-01.jsonl"]
	require.True(t, ok, "positions object missing: %v", keys(writer.objects))
	assert.Equal(t, 2, strings.Count(string(posData), "\n"))
	assert.Contains(t, string(posData), `"EUR/USD"`)

	expData, ok := writer.objects["archive/exposures/2025/04/2025-04-01.jsonl"]
	require.True(t, ok)
	assert.Contains(t, string(expData), `"e1"`)

	require.Len(t, audit.events, 1)
	assert.Equal(t, "ledger_archived", audit.events[0])
}

func TestArchiveSettledEmptyLedgerWritesNothing(t *testing.T) {
	writer := newMemWriter()
	audit := &stubAudit{}
	arch := NewArchiver(writer, &stubPositions{}, &stubExposures{}, audit, discardLogger())

	n, err := arch.ArchiveSettled(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.objects)
	assert.Empty(t, audit.events)
}

func TestSnapshotReportStoresJSON(t *testing.T) {
	writer := newMemWriter()
	arch := NewArchiver(writer, &stubPositions{}, &stubExposures{}, nil, discardLogger())

	report := map[string]any{"winrate": 0.5, "total_pnl": 200.0}
	require.NoError(t, arch.SnapshotReport(context.Background(), "monthly-stats", report))

	require.Len(t, writer.objects, 1)
	for path, data := range writer.objects {
		assert.True(t, strings.HasPrefix(path, "reports/"))
		assert.True(t, strings.HasSuffix(path, "/monthly-stats.json"))
		assert.Contains(t, string(data), `"winrate"`)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
