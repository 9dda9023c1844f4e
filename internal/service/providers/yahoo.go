package providers

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"time"

	"HypeRadar/internal/domain/models"
	"HypeRadar/internal/service/cache"
	"HypeRadar/internal/services/scoring"
	"HypeRadar/pkg/logger"
)

// Yahoo serves options flow (v7 options) and daily bars (v8 chart).
type Yahoo struct {
	*base
	options *cache.TTL[*models.OptionsFlow]
}

// NewYahoo builds the client. Options chains are cached per ticker for
// optionsTTL because they move slowly relative to the refresh cycle.
func NewYahoo(baseURL string, optionsTTL time.Duration, opts ...Option) *Yahoo {
	b := newBase("yahoo", baseURL, opts)
	return &Yahoo{
		base:    b,
		options: cache.New[*models.OptionsFlow]("yahoo_options", optionsTTL, b.cacheOpts...),
	}
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooContract struct {
	Volume       flexFloat `json:"volume"`
	OpenInterest flexFloat `json:"openInterest"`
}

type yahooOptionsResponse struct {
	OptionChain struct {
		Result []struct {
			ExpirationDates []int64 `json:"expirationDates"`
			Options         []struct {
				ExpirationDate int64           `json:"expirationDate"`
				Calls          []yahooContract `json:"calls"`
				Puts           []yahooContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"optionChain"`
}

// FetchOptionsFlow sums volume and open interest over the two nearest
// expiries.
func (y *Yahoo) FetchOptionsFlow(ctx context.Context, ticker string) (*models.OptionsFlow, error) {
	return y.options.Get(ctx, ticker, func(ctx context.Context) (*models.OptionsFlow, error) {
		return y.fetchOptions(ctx, ticker)
	})
}

func (y *Yahoo) fetchOptions(ctx context.Context, ticker string) (*models.OptionsFlow, error) {
	path := "/v7/finance/options/" + url.PathEscape(ticker)

	var first yahooOptionsResponse
	if err := y.getJSON(ctx, path, nil, &first); err != nil {
		return nil, err
	}
	if e := first.OptionChain.Error; e != nil {
		return nil, y.unavailable("%s: %s", e.Code, e.Description)
	}
	if len(first.OptionChain.Result) == 0 || len(first.OptionChain.Result[0].Options) == 0 {
		return nil, y.unavailable("no options chain for %s", ticker)
	}

	flow := &models.OptionsFlow{}
	addChain(flow, &first)

	dates := first.OptionChain.Result[0].ExpirationDates
	if len(dates) >= 2 {
		var second yahooOptionsResponse
		q := url.Values{"date": {strconv.FormatInt(dates[1], 10)}}
		if err := y.getJSON(ctx, path, q, &second); err != nil {
			y.log.Debug("second expiry unavailable", logger.String("ticker", ticker), logger.Error(err))
		} else {
			addChain(flow, &second)
		}
	}
	return flow, nil
}

func addChain(flow *models.OptionsFlow, r *yahooOptionsResponse) {
	for _, res := range r.OptionChain.Result {
		for _, exp := range res.Options {
			for _, c := range exp.Calls {
				flow.CallVolume += float64(c.Volume)
				flow.CallOpenInterest += float64(c.OpenInterest)
			}
			for _, p := range exp.Puts {
				flow.PutVolume += float64(p.Volume)
				flow.PutOpenInterest += float64(p.OpenInterest)
			}
		}
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				LongName           string  `json:"longName"`
				ShortName          string  `json:"shortName"`
				Currency           string  `json:"currency"`
				ExchangeName       string  `json:"fullExchangeName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				RegularMarketVol   float64 `json:"regularMarketVolume"`
				PreviousClose      float64 `json:"chartPreviousClose"`
				FiftyTwoWeekHigh   float64 `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow    float64 `json:"fiftyTwoWeekLow"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					High   []*float64 `json:"high"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// FetchPriceHistory returns one year of daily bars. Bars with a null close
// are dropped.
func (y *Yahoo) FetchPriceHistory(ctx context.Context, ticker string) (*models.PriceHistory, error) {
	var resp yahooChartResponse
	q := url.Values{"range": {"1y"}, "interval": {"1d"}}
	if err := y.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), q, &resp); err != nil {
		return nil, err
	}
	if e := resp.Chart.Error; e != nil {
		return nil, y.unavailable("%s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, y.unavailable("no chart for %s", ticker)
	}

	res := resp.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	h := &models.PriceHistory{High52w: res.Meta.FiftyTwoWeekHigh}
	var maxHigh float64
	for i, ts := range res.Timestamp {
		c := at(quote.Close, i)
		if c == nil || *c <= 0 {
			continue
		}
		var vol float64
		if v := at(quote.Volume, i); v != nil {
			vol = *v
		}
		if hi := at(quote.High, i); hi != nil {
			maxHigh = math.Max(maxHigh, *hi)
		}
		h.Timestamps = append(h.Timestamps, time.Unix(ts, 0).UTC())
		h.Prices = append(h.Prices, *c)
		h.Volumes = append(h.Volumes, vol)
	}
	if len(h.Prices) == 0 {
		return nil, y.unavailable("empty chart for %s", ticker)
	}
	if h.High52w <= 0 {
		h.High52w = maxHigh
	}

	if n := len(h.Prices); n >= 2 {
		if r, ok := scoring.SafeRatio(h.Prices[n-1]-h.Prices[n-2], h.Prices[n-2]); ok {
			h.ChangePct = r * 100
		}
	}
	return h, nil
}

func at(xs []*float64, i int) *float64 {
	if i < 0 || i >= len(xs) {
		return nil
	}
	return xs[i]
}

// FetchLastPrice returns the latest regular-market price, used by the
// thematic view for symbols outside the watchlist.
func (y *Yahoo) FetchLastPrice(ctx context.Context, ticker string) (float64, error) {
	q, err := y.FetchQuote(ctx, ticker)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// FetchQuote reads the one-day chart meta for ticker.
func (y *Yahoo) FetchQuote(ctx context.Context, ticker string) (*models.StockQuote, error) {
	var resp yahooChartResponse
	q := url.Values{"range": {"1d"}, "interval": {"1d"}}
	if err := y.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), q, &resp); err != nil {
		return nil, err
	}
	if e := resp.Chart.Error; e != nil {
		return nil, y.unavailable("%s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 || resp.Chart.Result[0].Meta.RegularMarketPrice <= 0 {
		return nil, y.unavailable("no price for %s", ticker)
	}
	m := resp.Chart.Result[0].Meta
	quote := &models.StockQuote{
		Ticker:   ticker,
		Name:     m.LongName,
		Exchange: m.ExchangeName,
		Currency: m.Currency,
		Price:    m.RegularMarketPrice,
		Volume:   m.RegularMarketVol,
		High52w:  m.FiftyTwoWeekHigh,
		Low52w:   m.FiftyTwoWeekLow,
	}
	if quote.Name == "" {
		quote.Name = m.ShortName
	}
	if m.RegularMarketTime > 0 {
		quote.MarketAt = time.Unix(m.RegularMarketTime, 0).UTC()
	}
	if r, ok := scoring.SafeRatio(m.RegularMarketPrice-m.PreviousClose, m.PreviousClose); ok {
		quote.ChangePct = r * 100
	}
	return quote, nil
}
