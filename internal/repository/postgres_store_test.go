package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "postgres"), time.Second, nil), mock
}

func TestPostgresInitCreatesTables(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS meme_alerts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS mover_scores").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ticker_hype").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertScore(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO meme_alerts .* ON CONFLICT \(ticker\) DO UPDATE`).
		WithArgs("GME", 8.5, 6.0, 4.0, 2, 6.65, "HIGH",
			"STRONG", "MODERATE", "MODERATE", "", 0.2, 12, 24.1, 3.5, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpsertScore(context.Background(), &models.SignalScore{
		Ticker: "GME", OptionsScore: 8.5, VolumeScore: 6, SocialScore: 4, SignalsTriggered: 2,
		AlertScore: 6.65, AlertLevel: models.AlertHigh,
		OptionsLabel: models.SignalStrong, VolumeLabel: models.SignalModerate, SocialLabel: models.SignalModerate,
		SentimentScore: 0.2, NewsCount: 12, CurrentPrice: 24.1, PriceChangePct: 3.5, Timestamp: ts,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertScoreWrapsError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO meme_alerts").WillReturnError(errors.New("connection reset"))

	err := store.UpsertScore(context.Background(), &models.SignalScore{Ticker: "AMC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert score AMC")
}

func TestPostgresReplaceHypePrunesOutsideBatch(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM ticker_hype WHERE ticker <> ALL\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ticker_hype").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.ReplaceHype(context.Background(), []*models.HypeScore{{Ticker: "GME", Group: "stocks"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceHypeIsTransactional(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM ticker_hype").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO ticker_hype").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ticker_hype").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := store.ReplaceHype(context.Background(), []*models.HypeScore{
		{Ticker: "GME", Group: "stocks", HypeScore: 1.2},
		{Ticker: "AMC", Group: "stocks", HypeScore: -1.2},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceHypeEmptyIsNoop(t *testing.T) {
	store, mock := newMockStore(t)
	require.NoError(t, store.ReplaceHype(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetScore(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	cols := []string{"ticker", "options_score", "volume_score", "social_score", "signals_triggered", "alert_score",
		"alert_level", "options_signal", "volume_signal", "social_signal", "missing_signals", "sentiment_score",
		"news_count", "current_price", "price_change_pct", "updated_at"}

	mock.ExpectQuery(`FROM meme_alerts WHERE ticker = \$1`).WithArgs("GME").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("GME", 10.0, 8.0, 7.0, 3, 8.55, "CRITICAL",
			"STRONG", "STRONG", "STRONG", "news", 0.4, 20, 30.5, 12.0, ts))

	sc, err := store.GetScore(context.Background(), "GME")
	require.NoError(t, err)
	assert.Equal(t, models.AlertCritical, sc.AlertLevel)
	assert.Equal(t, models.StringList{"news"}, sc.MissingSignals)
	assert.Equal(t, 3, sc.SignalsTriggered)
	assert.True(t, ts.Equal(sc.Timestamp))
}

func TestPostgresGetScoreNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM meme_alerts").WithArgs("ZZZ").WillReturnRows(sqlmock.NewRows([]string{"ticker"}))

	_, err := store.GetScore(context.Background(), "ZZZ")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestPostgresListMovers(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Now().UTC()
	cols := []string{"ticker", "mover_score", "label", "momentum_pct", "momentum_available",
		"near_52w_high", "near_round_number", "current_price", "updated_at"}
	mock.ExpectQuery("FROM mover_scores").WillReturnRows(sqlmock.NewRows(cols).
		AddRow("TSLA", 7.2, "BREAKOUT", 0.08, true, true, false, 251.0, ts).
		AddRow("AMC", 1.1, "NEUTRAL", -0.02, true, false, false, 4.2, ts))

	movers, err := store.ListMovers(context.Background())
	require.NoError(t, err)
	require.Len(t, movers, 2)
	assert.Equal(t, models.MoverBreakout, movers[0].Label)
	assert.True(t, movers[0].Near52wHigh)
}
