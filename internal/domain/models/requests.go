package models

import (
	"strings"

	xutil "HypeRadar/pkg/util"
)

// Requests for the dashboard HTTP endpoints.

type TickerRequest struct {
	Ticker string `param:"ticker" validate:"required,ticker"`
}

func (r *TickerRequest) Normalize() { r.Ticker = xutil.NormalizeTicker(r.Ticker) }

type AlertsRequest struct {
	Level string `query:"level" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Limit int    `query:"limit" default:"100" validate:"gte=1,lte=500"`
}

func (r *AlertsRequest) Normalize() { r.Level = strings.ToUpper(r.Level) }

type MoversRequest struct {
	Label string `query:"label" validate:"omitempty,oneof=BREAKOUT WATCH NEUTRAL"`
	Limit int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

func (r *MoversRequest) Normalize() { r.Label = strings.ToUpper(r.Label) }

type HistoryRequest struct {
	Ticker string `param:"ticker" validate:"required,ticker"`
	Window string `query:"window" default:"24h" validate:"required"`
	Limit  int    `query:"limit" default:"500" validate:"gte=1,lte=5000"`
}

func (r *HistoryRequest) Normalize() { r.Ticker = xutil.NormalizeTicker(r.Ticker) }

type HypeRequest struct {
	Group string `query:"group" validate:"omitempty,oneof=stocks crypto"`
	Limit int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
}
