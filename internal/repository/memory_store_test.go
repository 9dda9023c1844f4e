package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
)

func TestMemoryStoreUpsertReplacesRow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertScore(ctx, &models.SignalScore{Ticker: "GME", AlertScore: 3}))
	require.NoError(t, s.UpsertScore(ctx, &models.SignalScore{Ticker: "GME", AlertScore: 8}))
	require.NoError(t, s.UpsertScore(ctx, &models.SignalScore{Ticker: "AMC", AlertScore: 5}))

	got, err := s.GetScore(ctx, "GME")
	require.NoError(t, err)
	assert.Equal(t, 8.0, got.AlertScore)

	all, err := s.ListScores(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "GME", all[0].Ticker)

	_, err = s.GetScore(ctx, "NOPE")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	in := &models.MoverScore{Ticker: "TSLA", MoverScore: 5}
	require.NoError(t, s.UpsertMover(ctx, in))
	in.MoverScore = 0

	movers, err := s.ListMovers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, movers[0].MoverScore)
}

func TestMemoryStoreHypeOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.ReplaceHype(ctx, []*models.HypeScore{
		{Ticker: "A", HypeScore: -1}, {Ticker: "B", HypeScore: 2}, {Ticker: "C", HypeScore: 0},
	}))
	rows, err := s.ListHype(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, []string{rows[0].Ticker, rows[1].Ticker, rows[2].Ticker})
}

func TestMemoryStoreReplaceHypeDropsOldRows(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.ReplaceHype(ctx, []*models.HypeScore{
		{Ticker: "A", HypeScore: 1}, {Ticker: "B", HypeScore: -1},
	}))
	require.NoError(t, s.ReplaceHype(ctx, []*models.HypeScore{{Ticker: "A", HypeScore: 0}}))
	require.NoError(t, s.ReplaceHype(ctx, nil))

	rows, err := s.ListHype(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Ticker)
	assert.Equal(t, 0.0, rows[0].HypeScore)
}

func TestMemoryHistoryWindowAndRetention(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	h := NewMemoryHistoryLog(48 * time.Hour)
	h.now = func() time.Time { return now }

	for _, age := range []time.Duration{72 * time.Hour, 30 * time.Hour, 2 * time.Hour, time.Hour} {
		require.NoError(t, h.AppendHistory(ctx, &models.Snapshot{Ticker: "GME", Timestamp: now.Add(-age)}))
	}

	day, err := h.ReadHistory(ctx, "GME", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.True(t, day[0].Timestamp.Before(day[1].Timestamp))

	all, err := h.ReadHistory(ctx, "GME", 30*24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, all, 3, "rows past retention are dropped")

	none, err := h.ReadHistory(ctx, "AMC", 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, none)
}
