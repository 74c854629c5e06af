package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/akopyan/signaldesk/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memPositionStore is an in-memory domain.PositionStore for tests.
type memPositionStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
}

func newMemPositionStore() *memPositionStore {
	return &memPositionStore{positions: map[string]domain.Position{}}
}

func (m *memPositionStore) Create(_ context.Context, pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[pos.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.positions[pos.ID] = pos
	return nil
}

func (m *memPositionStore) Update(_ context.Context, pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[pos.ID]; !ok {
		return domain.ErrNotFound
	}
	m.positions[pos.ID] = pos
	return nil
}

func (m *memPositionStore) Settle(_ context.Context, id string, status domain.PositionStatus, closedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if pos.Status != domain.PositionStatusActive {
		return domain.ErrAlreadySettled
	}
	pos.Status = status
	pos.ClosedAt = &closedAt
	m.positions[id] = pos
	return nil
}

func (m *memPositionStore) GetByID(_ context.Context, id string) (domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (m *memPositionStore) ListOpen(_ context.Context) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Position
	for _, p := range m.positions {
		if p.Status == domain.PositionStatusActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memPositionStore) ListClosed(_ context.Context, _ domain.ListOpts) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Position
	for _, p := range m.positions {
		if p.Status.Terminal() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// memExposureStore is an in-memory domain.ExposureStore for tests.
type memExposureStore struct {
	mu        sync.Mutex
	exposures map[string]domain.Exposure
	settleErr error // injected failure for Settle
}

func newMemExposureStore() *memExposureStore {
	return &memExposureStore{exposures: map[string]domain.Exposure{}}
}

func (m *memExposureStore) Create(_ context.Context, exp domain.Exposure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exposures[exp.ID] = exp
	return nil
}

func (m *memExposureStore) Settle(_ context.Context, id string, result domain.Result, pnl float64, closedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settleErr != nil {
		return m.settleErr
	}
	exp, ok := m.exposures[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !exp.Open() {
		return domain.ErrAlreadySettled
	}
	exp.Result = result
	exp.PnL = &pnl
	exp.ClosedAt = &closedAt
	m.exposures[id] = exp
	return nil
}

func (m *memExposureStore) GetByID(_ context.Context, id string) (domain.Exposure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.exposures[id]
	if !ok {
		return domain.Exposure{}, domain.ErrNotFound
	}
	return exp, nil
}

func (m *memExposureStore) ListByPosition(_ context.Context, positionID string) ([]domain.Exposure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Exposure
	for _, e := range m.exposures {
		if e.PositionID == positionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memExposureStore) ListOpen(_ context.Context) ([]domain.Exposure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Exposure
	for _, e := range m.exposures {
		if e.Open() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memExposureStore) ListOpenByUser(_ context.Context, userID string) ([]domain.Exposure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Exposure
	for _, e := range m.exposures {
		if e.UserID == userID && e.Open() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memExposureStore) ListByUser(_ context.Context, userID string, _ domain.ListOpts) ([]domain.Exposure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Exposure
	for _, e := range m.exposures {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memExposureStore) ListSettled(_ context.Context, _ domain.ListOpts) ([]domain.Exposure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Exposure
	for _, e := range m.exposures {
		if !e.Open() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ClosedAt.Before(*out[j].ClosedAt)
	})
	return out, nil
}

// memTargetStore is an in-memory domain.TargetUpdateStore for tests.
type memTargetStore struct {
	mu      sync.Mutex
	updates []domain.TargetUpdate
}

func (m *memTargetStore) Log(_ context.Context, u domain.TargetUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = int64(len(m.updates) + 1)
	m.updates = append(m.updates, u)
	return nil
}

func (m *memTargetStore) ListByPosition(_ context.Context, positionID string) ([]domain.TargetUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TargetUpdate
	for _, u := range m.updates {
		if u.PositionID == positionID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memTargetStore) ListAll(_ context.Context) ([]domain.TargetUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TargetUpdate(nil), m.updates...), nil
}

// memAuditStore records audit events in memory.
type memAuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *memAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, domain.AuditEntry{
		ID:     int64(len(m.entries) + 1),
		Event:  event,
		Detail: detail,
	})
	return nil
}

func (m *memAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.entries...), nil
}

func (m *memAuditStore) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Event)
	}
	return out
}

// memBus collects published messages and serves manual subscriptions.
type memBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streams   map[string][][]byte
	subs      map[string]chan []byte
}

func newMemBus() *memBus {
	return &memBus{
		published: map[string][][]byte{},
		streams:   map[string][][]byte{},
		subs:      map[string]chan []byte{},
	}
}

func (m *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[channel] = append(m.published[channel], payload)
	if ch, ok := m.subs[channel]; ok {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (m *memBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan []byte, 16)
	m.subs[channel] = ch
	return ch, nil
}

func (m *memBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[stream] = append(m.streams[stream], payload)
	return nil
}

func (m *memBus) StreamRead(_ context.Context, stream string, _ string, count int) ([]domain.StreamMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StreamMessage
	for i, p := range m.streams[stream] {
		if count > 0 && len(out) >= count {
			break
		}
		out = append(out, domain.StreamMessage{ID: string(rune('1' + i)), Payload: p})
	}
	return out, nil
}

func (m *memBus) channelCount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published[channel])
}

// memLock is an in-process domain.LockManager.
type memLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLock() *memLock {
	return &memLock{held: map[string]bool{}}
}

func (m *memLock) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return nil, domain.ErrLockHeld
	}
	m.held[key] = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, key)
	}, nil
}

// fakeNotifier records broadcasts.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, _, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, title+": "+message)
	return nil
}
