package repository

import (
	"context"
	"errors"
	"time"

	"HypeRadar/internal/domain/models"
)

var (
	// ErrUnavailable marks a provider that did not answer usefully. Callers
	// treat it as a missing sample, never as a cycle failure.
	ErrUnavailable = errors.New("provider unavailable")
	ErrNotFound    = errors.New("not found")
)

type OptionsProvider interface {
	FetchOptionsFlow(ctx context.Context, ticker string) (*models.OptionsFlow, error)
}

type PriceProvider interface {
	FetchPriceHistory(ctx context.Context, ticker string) (*models.PriceHistory, error)
}

type SocialProvider interface {
	FetchSocialMentions(ctx context.Context, ticker string) (*models.SocialMention, error)
	// FetchSocialMentionsBatch returns only tickers the source knows about.
	FetchSocialMentionsBatch(ctx context.Context, tickers []string) (map[string]*models.SocialMention, error)
}

type NewsProvider interface {
	FetchNewsSentiment(ctx context.Context, ticker string) (*models.NewsSentiment, error)
}

type MacroProvider interface {
	FetchMacroEvents(ctx context.Context) ([]models.MacroEvent, error)
}

// ScoreStore keeps the latest row per ticker.
type ScoreStore interface {
	Init(ctx context.Context) error
	UpsertScore(ctx context.Context, s *models.SignalScore) error
	UpsertMover(ctx context.Context, m *models.MoverScore) error
	// ReplaceHype swaps the stored hype rows for one cycle's batch.
	ReplaceHype(ctx context.Context, h []*models.HypeScore) error
	GetScore(ctx context.Context, ticker string) (*models.SignalScore, error)
	ListScores(ctx context.Context) ([]*models.SignalScore, error)
	ListMovers(ctx context.Context) ([]*models.MoverScore, error)
	ListHype(ctx context.Context) ([]*models.HypeScore, error)
	Close() error
}

// HistoryLog is the append-only snapshot log.
type HistoryLog interface {
	Init(ctx context.Context) error
	AppendHistory(ctx context.Context, s *models.Snapshot) error
	// ReadHistory returns snapshots newer than now-window, oldest first.
	ReadHistory(ctx context.Context, ticker string, window time.Duration) ([]*models.Snapshot, error)
	Close() error
}

// Notifier delivers the set of CRITICAL tickers of one cycle.
type Notifier interface {
	NotifyCritical(ctx context.Context, tickers []string, recipients []string) error
}

// CycleListener is told about every finished cycle.
type CycleListener interface {
	OnCycle(report *models.CycleReport)
}

type Metrics interface {
	ObserveCycle(d time.Duration, outcome string)
	RecordAlertLevels(counts map[models.AlertLevel]int)
	RecordDataQuality(signal, reason string)
	RecordProviderError(provider, kind string)
	RecordPersistError(op string)
	RecordNotification(channel, outcome string)
}
