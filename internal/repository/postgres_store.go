package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	applogger "HypeRadar/pkg/logger"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS meme_alerts (
		ticker            TEXT PRIMARY KEY,
		options_score     DOUBLE PRECISION NOT NULL,
		volume_score      DOUBLE PRECISION NOT NULL,
		social_score      DOUBLE PRECISION NOT NULL,
		signals_triggered INTEGER NOT NULL,
		alert_score       DOUBLE PRECISION NOT NULL,
		alert_level       TEXT NOT NULL,
		options_signal    TEXT NOT NULL,
		volume_signal     TEXT NOT NULL,
		social_signal     TEXT NOT NULL,
		missing_signals   TEXT NOT NULL DEFAULT '',
		sentiment_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
		news_count        INTEGER NOT NULL DEFAULT 0,
		current_price     DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_change_pct  DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS mover_scores (
		ticker             TEXT PRIMARY KEY,
		mover_score        DOUBLE PRECISION NOT NULL,
		label              TEXT NOT NULL,
		momentum_pct       DOUBLE PRECISION NOT NULL,
		momentum_available BOOLEAN NOT NULL,
		near_52w_high      BOOLEAN NOT NULL,
		near_round_number  BOOLEAN NOT NULL,
		current_price      DOUBLE PRECISION NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ticker_hype (
		ticker      TEXT PRIMARY KEY,
		asset_group TEXT NOT NULL,
		hype_score  DOUBLE PRECISION NOT NULL,
		social_raw  DOUBLE PRECISION NOT NULL,
		news_raw    DOUBLE PRECISION NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
}

const (
	upsertScoreSQL = `
		INSERT INTO meme_alerts
		(ticker, options_score, volume_score, social_score, signals_triggered, alert_score, alert_level,
		 options_signal, volume_signal, social_signal, missing_signals, sentiment_score, news_count,
		 current_price, price_change_pct, updated_at)
		VALUES
		(:ticker, :options_score, :volume_score, :social_score, :signals_triggered, :alert_score, :alert_level,
		 :options_signal, :volume_signal, :social_signal, :missing_signals, :sentiment_score, :news_count,
		 :current_price, :price_change_pct, :updated_at)
		ON CONFLICT (ticker) DO UPDATE SET
			options_score = EXCLUDED.options_score,
			volume_score = EXCLUDED.volume_score,
			social_score = EXCLUDED.social_score,
			signals_triggered = EXCLUDED.signals_triggered,
			alert_score = EXCLUDED.alert_score,
			alert_level = EXCLUDED.alert_level,
			options_signal = EXCLUDED.options_signal,
			volume_signal = EXCLUDED.volume_signal,
			social_signal = EXCLUDED.social_signal,
			missing_signals = EXCLUDED.missing_signals,
			sentiment_score = EXCLUDED.sentiment_score,
			news_count = EXCLUDED.news_count,
			current_price = EXCLUDED.current_price,
			price_change_pct = EXCLUDED.price_change_pct,
			updated_at = EXCLUDED.updated_at`

	upsertMoverSQL = `
		INSERT INTO mover_scores
		(ticker, mover_score, label, momentum_pct, momentum_available, near_52w_high, near_round_number,
		 current_price, updated_at)
		VALUES
		(:ticker, :mover_score, :label, :momentum_pct, :momentum_available, :near_52w_high, :near_round_number,
		 :current_price, :updated_at)
		ON CONFLICT (ticker) DO UPDATE SET
			mover_score = EXCLUDED.mover_score,
			label = EXCLUDED.label,
			momentum_pct = EXCLUDED.momentum_pct,
			momentum_available = EXCLUDED.momentum_available,
			near_52w_high = EXCLUDED.near_52w_high,
			near_round_number = EXCLUDED.near_round_number,
			current_price = EXCLUDED.current_price,
			updated_at = EXCLUDED.updated_at`

	upsertHypeSQL = `
		INSERT INTO ticker_hype (ticker, asset_group, hype_score, social_raw, news_raw, updated_at)
		VALUES (:ticker, :asset_group, :hype_score, :social_raw, :news_raw, :updated_at)
		ON CONFLICT (ticker) DO UPDATE SET
			asset_group = EXCLUDED.asset_group,
			hype_score = EXCLUDED.hype_score,
			social_raw = EXCLUDED.social_raw,
			news_raw = EXCLUDED.news_raw,
			updated_at = EXCLUDED.updated_at`

	pruneHypeSQL = `DELETE FROM ticker_hype WHERE ticker <> ALL($1)`

	scoreColumns = `ticker, options_score, volume_score, social_score, signals_triggered, alert_score, alert_level,
		options_signal, volume_signal, social_signal, missing_signals, sentiment_score, news_count,
		current_price, price_change_pct, updated_at`
)

// PostgresStore keeps the latest score, mover and hype row per ticker.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
	l       *applogger.Logger
}

func NewPostgresStore(db *sqlx.DB, timeout time.Duration, l *applogger.Logger) *PostgresStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &PostgresStore{db: db, timeout: timeout, l: l.With(applogger.String("store", "postgres"))}
}

var _ domrepo.ScoreStore = (*PostgresStore)(nil)

func (s *PostgresStore) Init(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) UpsertScore(ctx context.Context, sc *models.SignalScore) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.NamedExecContext(ctx, upsertScoreSQL, sc); err != nil {
		return fmt.Errorf("upsert score %s: %w", sc.Ticker, err)
	}
	return nil
}

func (s *PostgresStore) UpsertMover(ctx context.Context, m *models.MoverScore) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.NamedExecContext(ctx, upsertMoverSQL, m); err != nil {
		return fmt.Errorf("upsert mover %s: %w", m.Ticker, err)
	}
	return nil
}

// ReplaceHype writes the batch in one transaction and drops rows for
// tickers outside it, so ticker_hype only holds z-scores from one population.
func (s *PostgresStore) ReplaceHype(ctx context.Context, rows []*models.HypeScore) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tickers := make([]string, 0, len(rows))
	for _, h := range rows {
		tickers = append(tickers, h.Ticker)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin hype tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, pruneHypeSQL, pq.Array(tickers)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prune hype: %w", err)
	}
	for _, h := range rows {
		if _, err := tx.NamedExecContext(ctx, upsertHypeSQL, h); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert hype %s: %w", h.Ticker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit hype tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetScore(ctx context.Context, ticker string) (*models.SignalScore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var sc models.SignalScore
	err := s.db.GetContext(ctx, &sc, `SELECT `+scoreColumns+` FROM meme_alerts WHERE ticker = $1`, ticker)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("score %s: %w", ticker, domrepo.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get score %s: %w", ticker, err)
	}
	return &sc, nil
}

func (s *PostgresStore) ListScores(ctx context.Context) ([]*models.SignalScore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out []*models.SignalScore
	if err := s.db.SelectContext(ctx, &out, `SELECT `+scoreColumns+` FROM meme_alerts ORDER BY alert_score DESC, ticker`); err != nil {
		s.l.Error("list scores", applogger.Error(err))
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListMovers(ctx context.Context) ([]*models.MoverScore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out []*models.MoverScore
	const q = `
		SELECT ticker, mover_score, label, momentum_pct, momentum_available, near_52w_high,
		       near_round_number, current_price, updated_at
		FROM mover_scores
		ORDER BY mover_score DESC, ticker`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list movers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListHype(ctx context.Context) ([]*models.HypeScore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out []*models.HypeScore
	const q = `
		SELECT ticker, asset_group, hype_score, social_raw, news_raw, updated_at
		FROM ticker_hype
		ORDER BY hype_score DESC, ticker`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list hype: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
