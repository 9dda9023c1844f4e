package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
)

// MemoryStore is the ScoreStore used when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[string]models.SignalScore
	movers map[string]models.MoverScore
	hype   map[string]models.HypeScore
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scores: make(map[string]models.SignalScore),
		movers: make(map[string]models.MoverScore),
		hype:   make(map[string]models.HypeScore),
	}
}

var _ domrepo.ScoreStore = (*MemoryStore)(nil)

func (m *MemoryStore) Init(context.Context) error { return nil }

func (m *MemoryStore) UpsertScore(_ context.Context, s *models.SignalScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[s.Ticker] = *s
	return nil
}

func (m *MemoryStore) UpsertMover(_ context.Context, s *models.MoverScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movers[s.Ticker] = *s
	return nil
}

func (m *MemoryStore) ReplaceHype(_ context.Context, rows []*models.HypeScore) error {
	if len(rows) == 0 {
		return nil
	}
	hype := make(map[string]models.HypeScore, len(rows))
	for _, h := range rows {
		hype[h.Ticker] = *h
	}
	m.mu.Lock()
	m.hype = hype
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetScore(_ context.Context, ticker string) (*models.SignalScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scores[ticker]
	if !ok {
		return nil, fmt.Errorf("score %s: %w", ticker, domrepo.ErrNotFound)
	}
	return &s, nil
}

func (m *MemoryStore) ListScores(context.Context) ([]*models.SignalScore, error) {
	m.mu.RLock()
	out := make([]*models.SignalScore, 0, len(m.scores))
	for _, s := range m.scores {
		s := s
		out = append(out, &s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].AlertScore != out[j].AlertScore {
			return out[i].AlertScore > out[j].AlertScore
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out, nil
}

func (m *MemoryStore) ListMovers(context.Context) ([]*models.MoverScore, error) {
	m.mu.RLock()
	out := make([]*models.MoverScore, 0, len(m.movers))
	for _, s := range m.movers {
		s := s
		out = append(out, &s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].MoverScore != out[j].MoverScore {
			return out[i].MoverScore > out[j].MoverScore
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out, nil
}

func (m *MemoryStore) ListHype(context.Context) ([]*models.HypeScore, error) {
	m.mu.RLock()
	out := make([]*models.HypeScore, 0, len(m.hype))
	for _, h := range m.hype {
		h := h
		out = append(out, &h)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].HypeScore != out[j].HypeScore {
			return out[i].HypeScore > out[j].HypeScore
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// MemoryHistoryLog keeps snapshots per ticker in append order. Rows older
// than retention are dropped on append.
type MemoryHistoryLog struct {
	mu        sync.RWMutex
	rows      map[string][]*models.Snapshot
	retention time.Duration
	now       func() time.Time
}

func NewMemoryHistoryLog(retention time.Duration) *MemoryHistoryLog {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &MemoryHistoryLog{
		rows:      make(map[string][]*models.Snapshot),
		retention: retention,
		now:       time.Now,
	}
}

var _ domrepo.HistoryLog = (*MemoryHistoryLog)(nil)

func (h *MemoryHistoryLog) Init(context.Context) error { return nil }

func (h *MemoryHistoryLog) AppendHistory(_ context.Context, s *models.Snapshot) error {
	cp := *s
	cutoff := h.now().Add(-h.retention)

	h.mu.Lock()
	defer h.mu.Unlock()
	rows := h.rows[s.Ticker]
	i := 0
	for i < len(rows) && rows[i].Timestamp.Before(cutoff) {
		i++
	}
	h.rows[s.Ticker] = append(rows[i:], &cp)
	return nil
}

func (h *MemoryHistoryLog) ReadHistory(_ context.Context, ticker string, window time.Duration) ([]*models.Snapshot, error) {
	from := h.now().Add(-window)

	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*models.Snapshot
	for _, s := range h.rows[ticker] {
		if s.Timestamp.Before(from) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (h *MemoryHistoryLog) Close() error { return nil }
