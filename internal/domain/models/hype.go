package models

import "time"

// HypeInput is one ticker's raw social and news metrics for a cycle.
type HypeInput struct {
	Ticker    string
	Group     string
	SocialRaw float64
	NewsRaw   float64
}

// HypeScore is a population-relative z-score. It has no meaning outside
// the cycle that produced it.
type HypeScore struct {
	Ticker    string    `json:"ticker" db:"ticker"`
	Group     string    `json:"group" db:"asset_group"`
	HypeScore float64   `json:"hype_score" db:"hype_score"`
	SocialRaw float64   `json:"social_raw" db:"social_raw"`
	NewsRaw   float64   `json:"news_raw" db:"news_raw"`
	Timestamp time.Time `json:"timestamp" db:"updated_at"`
}

// HypeRaw is one ticker's unnormalized news metrics from a live fetch.
type HypeRaw struct {
	Ticker    string    `json:"ticker"`
	Group     string    `json:"group"`
	NewsCount int       `json:"news_count"`
	Polarity  float64   `json:"sentiment_polarity"`
	Timestamp time.Time `json:"timestamp"`
}
