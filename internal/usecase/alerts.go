package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	domsvc "HypeRadar/internal/domain/service"
	"HypeRadar/internal/service/cache"
)

// liveEntries bounds the on-demand score cache. Any ticker symbol can be
// requested, so the key space is open.
const liveEntries = 1024

// AlertService serves stored scores and on-demand single-ticker scores.
type AlertService struct {
	watchlist models.Watchlist
	store     domrepo.ScoreStore
	history   domrepo.HistoryLog
	collector *SampleCollector
	scorer    domsvc.SignalScorer
	live      *cache.TTL[*models.SignalScore]
	now       func() time.Time
}

func NewAlertService(
	watchlist models.Watchlist,
	store domrepo.ScoreStore,
	history domrepo.HistoryLog,
	collector *SampleCollector,
	scorer domsvc.SignalScorer,
	scoreTTL time.Duration,
	opts ...cache.Option,
) *AlertService {
	return &AlertService{
		watchlist: watchlist,
		store:     store,
		history:   history,
		collector: collector,
		scorer:    scorer,
		live:      cache.New[*models.SignalScore]("alert", scoreTTL, append(opts, cache.WithMaxEntries(liveEntries))...),
		now:       time.Now,
	}
}

// Dashboard returns one row per watchlist ticker. Tickers never scored keep
// a nil score and sort after every scored ticker.
func (s *AlertService) Dashboard(ctx context.Context, level models.AlertLevel, limit int) ([]models.AlertView, error) {
	stored, err := s.store.ListScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	byTicker := make(map[string]*models.SignalScore, len(stored))
	for _, sc := range stored {
		byTicker[sc.Ticker] = sc
	}

	rows := make([]models.AlertView, 0, len(s.watchlist))
	for _, e := range s.watchlist {
		sc := byTicker[e.Ticker]
		if level != "" && (sc == nil || sc.AlertLevel != level) {
			continue
		}
		rows = append(rows, models.NewAlertView(e.Ticker, e.Sector, sc))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].AlertScore, rows[j].AlertScore
		switch {
		case a == nil && b == nil:
			return rows[i].Ticker < rows[j].Ticker
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Score computes a fresh score for ticker through the provider chain,
// cached per ticker. Unknown tickers are scored in the stocks group.
func (s *AlertService) Score(ctx context.Context, ticker string) (*models.SignalScore, error) {
	return s.live.Get(ctx, ticker, func(ctx context.Context) (*models.SignalScore, error) {
		entry, ok := s.watchlist.Find(ticker)
		if !ok {
			entry = models.WatchlistEntry{Ticker: ticker, Group: "stocks"}
		}
		sample := s.collector.CollectOne(ctx, entry)
		if sample.Available == 0 {
			return nil, fmt.Errorf("score %s: %w", ticker, domrepo.ErrUnavailable)
		}
		score, _ := s.scorer.Score(sample, s.now())
		return score, nil
	})
}

func (s *AlertService) Movers(ctx context.Context, label models.MoverLabel, limit int) ([]*models.MoverScore, error) {
	movers, err := s.store.ListMovers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list movers: %w", err)
	}
	out := movers[:0]
	for _, m := range movers {
		if label == "" || m.Label == label {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *AlertService) History(ctx context.Context, ticker string, window time.Duration, limit int) ([]*models.Snapshot, error) {
	snaps, err := s.history.ReadHistory(ctx, ticker, window)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[len(snaps)-limit:]
	}
	return snaps, nil
}
