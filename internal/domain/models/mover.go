package models

import "time"

type MoverLabel string

const (
	MoverBreakout MoverLabel = "BREAKOUT"
	MoverWatch    MoverLabel = "WATCH"
	MoverNeutral  MoverLabel = "NEUTRAL"
)

// MoverInput is what the predictor needs per ticker. HasMomentum is false
// when price history was too short or malformed.
type MoverInput struct {
	Ticker       string
	AlertScore   float64
	MomentumPct  float64
	HasMomentum  bool
	CurrentPrice float64
	Price52wHigh float64
}

type MoverScore struct {
	Ticker            string     `json:"ticker" db:"ticker"`
	MoverScore        float64    `json:"mover_score" db:"mover_score"`
	Label             MoverLabel `json:"label" db:"label"`
	MomentumPct       float64    `json:"momentum_pct" db:"momentum_pct"`
	MomentumAvailable bool       `json:"momentum_available" db:"momentum_available"`
	Near52wHigh       bool       `json:"near_52w_high" db:"near_52w_high"`
	NearRoundNumber   bool       `json:"near_round_number" db:"near_round_number"`
	CurrentPrice      float64    `json:"current_price" db:"current_price"`
	Timestamp         time.Time  `json:"timestamp" db:"updated_at"`
}
