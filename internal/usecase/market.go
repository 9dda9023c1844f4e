package usecase

import (
	"context"
	"time"

	"HypeRadar/internal/domain/models"
	domrepo "HypeRadar/internal/domain/repository"
	"HypeRadar/internal/service/cache"
)

// MacroService serves prediction-market events, cached as one batch.
type MacroService struct {
	provider domrepo.MacroProvider
	events   *cache.TTL[[]models.MacroEvent]
}

func NewMacroService(provider domrepo.MacroProvider, ttl time.Duration, opts ...cache.Option) *MacroService {
	return &MacroService{provider: provider, events: cache.New[[]models.MacroEvent]("macro", ttl, opts...)}
}

func (s *MacroService) Events(ctx context.Context) ([]models.MacroEvent, error) {
	return s.events.Get(ctx, "events", s.provider.FetchMacroEvents)
}

// QuoteProvider returns a last traded price.
type QuoteProvider interface {
	FetchLastPrice(ctx context.Context, ticker string) (float64, error)
}

// StockProvider returns a quote snapshot for one symbol.
type StockProvider interface {
	FetchQuote(ctx context.Context, ticker string) (*models.StockQuote, error)
}

// stockEntries bounds the quote cache since any symbol can be requested.
const stockEntries = 512

// StockService serves cached single-symbol quotes.
type StockService struct {
	provider StockProvider
	quotes   *cache.TTL[*models.StockQuote]
}

func NewStockService(provider StockProvider, ttl time.Duration, opts ...cache.Option) *StockService {
	return &StockService{
		provider: provider,
		quotes:   cache.New[*models.StockQuote]("stock_quote", ttl, append(opts, cache.WithMaxEntries(stockEntries))...),
	}
}

func (s *StockService) Quote(ctx context.Context, ticker string) (*models.StockQuote, error) {
	return s.quotes.Get(ctx, ticker, func(ctx context.Context) (*models.StockQuote, error) {
		return s.provider.FetchQuote(ctx, ticker)
	})
}

// ThematicService groups configured symbols by sector theme. Prices come
// from the stored scores, then from a cached live quote; a symbol with
// neither gets a null price.
type ThematicService struct {
	themes map[string][]string
	store  domrepo.ScoreStore
	quotes QuoteProvider
	cached *cache.TTL[float64]
}

// NewThematicService accepts a nil quotes provider.
func NewThematicService(themes map[string][]string, store domrepo.ScoreStore, quotes QuoteProvider, ttl time.Duration, opts ...cache.Option) *ThematicService {
	return &ThematicService{
		themes: themes,
		store:  store,
		quotes: quotes,
		cached: cache.New[float64]("theme_quote", ttl, opts...),
	}
}

func (s *ThematicService) Themes(ctx context.Context) (map[string][]models.ThemeEntry, error) {
	scores, err := s.store.ListScores(ctx)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]float64, len(scores))
	for _, sc := range scores {
		if sc.CurrentPrice > 0 {
			prices[sc.Ticker] = sc.CurrentPrice
		}
	}

	out := make(map[string][]models.ThemeEntry, len(s.themes))
	for name, symbols := range s.themes {
		entries := make([]models.ThemeEntry, 0, len(symbols))
		for _, sym := range symbols {
			e := models.ThemeEntry{Symbol: sym}
			if p, ok := prices[sym]; ok {
				e.Price = &p
			} else if p, ok := s.quote(ctx, sym); ok {
				e.Price = &p
			}
			entries = append(entries, e)
		}
		out[name] = entries
	}
	return out, nil
}

func (s *ThematicService) quote(ctx context.Context, symbol string) (float64, bool) {
	if s.quotes == nil {
		return 0, false
	}
	p, err := s.cached.Get(ctx, symbol, func(ctx context.Context) (float64, error) {
		return s.quotes.FetchLastPrice(ctx, symbol)
	})
	if err != nil || p <= 0 {
		return 0, false
	}
	return p, true
}
