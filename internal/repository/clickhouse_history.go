package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	pkgch "HypeRadar/pkg/clickhouse"
	applogger "HypeRadar/pkg/logger"
)

const historyColumns = "cycle_id, ticker, alert_score, alert_level, options_score, volume_score, social_score, signals_triggered, current_price, ts"

// CHHistoryLog is the append-only snapshot log on ClickHouse.
type CHHistoryLog struct {
	db    *sql.DB
	table string
	now   func() time.Time
	l     *applogger.Logger
}

func NewCHHistoryLog(ch *pkgch.Client, l *applogger.Logger) *CHHistoryLog {
	if l == nil {
		l = applogger.Nop()
	}
	table := "score_history"
	if db := ch.Database(); db != "" {
		table = db + "." + table
	}
	return &CHHistoryLog{db: ch.DB(), table: table, now: time.Now, l: l}
}

var _ domrepo.HistoryLog = (*CHHistoryLog)(nil)

func (h *CHHistoryLog) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cycle_id          String,
			ticker            LowCardinality(String),
			alert_score       Float64,
			alert_level       LowCardinality(String),
			options_score     Float64,
			volume_score      Float64,
			social_score      Float64,
			signals_triggered UInt8,
			current_price     Float64,
			ts                DateTime64(3, 'UTC')
		)
		ENGINE = MergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (ticker, ts)
		TTL toDateTime(ts) + INTERVAL 180 DAY`, h.table)
	if _, err := h.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("clickhouse init history: %w", err)
	}
	return nil
}

func (h *CHHistoryLog) AppendHistory(ctx context.Context, s *models.Snapshot) error {
	return h.AppendBatch(ctx, []*models.Snapshot{s})
}

// AppendBatch inserts snapshots with multi-row VALUES, chunked to bound
// statement size.
func (h *CHHistoryLog) AppendBatch(ctx context.Context, snaps []*models.Snapshot) error {
	const chunkSize = 1000
	for start := 0; start < len(snaps); start += chunkSize {
		end := min(start+chunkSize, len(snaps))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, s := range snaps[start:end] {
			if s == nil || s.Ticker == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				s.CycleID,
				s.Ticker,
				s.AlertScore,
				string(s.AlertLevel),
				s.OptionsScore,
				s.VolumeScore,
				s.SocialScore,
				uint8(s.SignalsTriggered),
				s.CurrentPrice,
				s.Timestamp.UTC(),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", h.table, historyColumns, strings.Join(values, ","))
		if _, err := h.db.ExecContext(ctx, q, args...); err != nil {
			h.l.Error("clickhouse append history",
				applogger.String("table", h.table),
				applogger.Int("rows", len(values)),
				applogger.Error(err),
			)
			return fmt.Errorf("append history: %w", err)
		}
	}
	return nil
}

func (h *CHHistoryLog) ReadHistory(ctx context.Context, ticker string, window time.Duration) ([]*models.Snapshot, error) {
	start := time.Now()
	from := h.now().Add(-window).UTC()
	q := fmt.Sprintf("SELECT %s FROM %s WHERE ticker = ? AND ts >= ? ORDER BY ts ASC", historyColumns, h.table)

	rows, err := h.db.QueryContext(ctx, q, ticker, from)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", ticker, err)
	}
	defer rows.Close()

	out := make([]*models.Snapshot, 0, 64)
	for rows.Next() {
		var (
			s       models.Snapshot
			level   string
			trigger uint8
		)
		if err := rows.Scan(&s.CycleID, &s.Ticker, &s.AlertScore, &level, &s.OptionsScore,
			&s.VolumeScore, &s.SocialScore, &trigger, &s.CurrentPrice, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.AlertLevel = models.AlertLevel(level)
		s.SignalsTriggered = int(trigger)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	h.l.Debug("clickhouse read history ok",
		applogger.String("ticker", ticker),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (h *CHHistoryLog) Close() error { return nil }
