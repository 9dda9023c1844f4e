package models

import "time"

// Snapshot is one immutable history-log row.
type Snapshot struct {
	CycleID          string     `json:"cycle_id"`
	Ticker           string     `json:"ticker"`
	AlertScore       float64    `json:"alert_score"`
	AlertLevel       AlertLevel `json:"alert_level"`
	OptionsScore     float64    `json:"options_score"`
	VolumeScore      float64    `json:"volume_score"`
	SocialScore      float64    `json:"social_score"`
	SignalsTriggered int        `json:"signals_triggered"`
	CurrentPrice     float64    `json:"current_price"`
	Timestamp        time.Time  `json:"timestamp"`
}

// SnapshotFromScore builds the history row for score.
func SnapshotFromScore(cycleID string, s *SignalScore) *Snapshot {
	return &Snapshot{
		CycleID:          cycleID,
		Ticker:           s.Ticker,
		AlertScore:       s.AlertScore,
		AlertLevel:       s.AlertLevel,
		OptionsScore:     s.OptionsScore,
		VolumeScore:      s.VolumeScore,
		SocialScore:      s.SocialScore,
		SignalsTriggered: s.SignalsTriggered,
		CurrentPrice:     s.CurrentPrice,
		Timestamp:        s.Timestamp,
	}
}

// CycleReport summarizes one refresh cycle.
type CycleReport struct {
	CycleID    string            `json:"cycle_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Scores     []*SignalScore    `json:"scores"`
	Movers     []*MoverScore     `json:"movers"`
	Hype       []*HypeScore      `json:"hype"`
	Critical   []string          `json:"critical"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// Failed reports whether any ticker failed to persist.
func (r *CycleReport) Failed() bool { return len(r.Errors) > 0 }

// ThemeEntry is one symbol inside a thematic sector.
type ThemeEntry struct {
	Symbol string   `json:"symbol"`
	Price  *float64 `json:"price"`
}
