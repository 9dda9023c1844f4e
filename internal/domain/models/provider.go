package models

import "time"

// OptionsFlow is the aggregated near-term options chain for a ticker.
type OptionsFlow struct {
	CallVolume       float64
	PutVolume        float64
	CallOpenInterest float64
	PutOpenInterest  float64
}

// PriceHistory holds daily bars, oldest first.
type PriceHistory struct {
	Timestamps []time.Time
	Prices     []float64
	Volumes    []float64
	High52w    float64
	ChangePct  float64
}

// SocialMention is one ticker's mention count and its reference baseline.
// A zero Baseline means none was reported.
type SocialMention struct {
	Ticker   string
	Mentions float64
	Baseline float64
	Rank     int
}

// NewsSentiment carries a polarity in [-1,1] and the article count.
type NewsSentiment struct {
	Polarity  float64
	NewsCount int
}

// MacroEvent is a prediction-market question shown next to the scores.
type MacroEvent struct {
	Question        string    `json:"question"`
	Probability     float64   `json:"probability"`
	AffectedTickers []string  `json:"affected_tickers"`
	Volume24h       float64   `json:"volume_24h"`
	EndDate         time.Time `json:"end_date"`
}

// StockQuote is the chart-meta snapshot served for a single symbol.
type StockQuote struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Exchange  string    `json:"exchange"`
	Currency  string    `json:"currency"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	High52w   float64   `json:"high_52w"`
	Low52w    float64   `json:"low_52w"`
	MarketAt  time.Time `json:"market_time"`
	ChangePct float64   `json:"change_pct"`
}
