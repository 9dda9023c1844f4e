package models

// WatchlistEntry is one monitored ticker. Group selects the hype
// population (stocks or crypto).
type WatchlistEntry struct {
	Ticker  string
	Sector  string
	Group   string
	Aliases []string
}

type Watchlist []WatchlistEntry

func (w Watchlist) Tickers() []string {
	out := make([]string, len(w))
	for i, e := range w {
		out[i] = e.Ticker
	}
	return out
}

// Find returns the entry for ticker.
func (w Watchlist) Find(ticker string) (WatchlistEntry, bool) {
	for _, e := range w {
		if e.Ticker == ticker {
			return e, true
		}
	}
	return WatchlistEntry{}, false
}
