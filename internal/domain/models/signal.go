package models

import "time"

// AlertLevel is the discretized composite score.
type AlertLevel string

const (
	AlertLow      AlertLevel = "LOW"
	AlertMedium   AlertLevel = "MEDIUM"
	AlertHigh     AlertLevel = "HIGH"
	AlertCritical AlertLevel = "CRITICAL"
)

// AlertLevels lists tiers from lowest to highest.
var AlertLevels = []AlertLevel{AlertLow, AlertMedium, AlertHigh, AlertCritical}

// SignalLabel is the per-signal strength shown next to each sub-score.
type SignalLabel string

const (
	SignalStrong   SignalLabel = "STRONG"
	SignalModerate SignalLabel = "MODERATE"
	SignalWeak     SignalLabel = "WEAK"
	SignalNoData   SignalLabel = "NO_DATA"
)

// Source marks which provider answered for a sample.
type Source uint8

const (
	SourceOptions Source = 1 << iota
	SourceVolume
	SourceSocial
	SourceNews
	SourcePrice
)

func (s Source) Has(flag Source) bool { return s&flag != 0 }

func (s Source) String() string {
	switch s {
	case SourceOptions:
		return "options"
	case SourceVolume:
		return "volume"
	case SourceSocial:
		return "social"
	case SourceNews:
		return "news"
	case SourcePrice:
		return "price"
	default:
		return "mixed"
	}
}

// RawSignalSample is everything collected for one ticker in one cycle.
// It is never persisted verbatim.
type RawSignalSample struct {
	Ticker string
	Group  string

	CallVolume       float64
	PutVolume        float64
	CallOpenInterest float64

	VolumeToday       float64
	VolumeBaseline30d float64
	Volume5dAvg       float64
	VolatilityRatio   float64

	MentionCount    float64
	MentionBaseline float64
	MentionRank     int

	SentimentPolarity float64
	NewsCount         int

	CurrentPrice   float64
	Price5dAgo     float64
	Price52wHigh   float64
	PriceChangePct float64

	Available Source
	Collected time.Time
}

// SubScores is the normalizer output for one sample.
type SubScores struct {
	Options          float64
	Volume           float64
	Social           float64
	SignalsTriggered int
	Issues           []DataQualityIssue
}

// DataQualityIssue describes a degraded input. It is logged and counted,
// never surfaced to the dashboard as an error.
type DataQualityIssue struct {
	Ticker string
	Signal string
	Reason string
}

const (
	ReasonUnavailable       = "unavailable"
	ReasonZeroDenominator   = "zero_denominator"
	ReasonNoBaseline        = "no_baseline"
	ReasonHighAttentionZero = "zero_social_high_attention"
)

// SignalScore is the persisted early-warning record for one ticker.
type SignalScore struct {
	Ticker           string      `json:"ticker" db:"ticker"`
	OptionsScore     float64     `json:"options_score" db:"options_score"`
	VolumeScore      float64     `json:"volume_score" db:"volume_score"`
	SocialScore      float64     `json:"social_score" db:"social_score"`
	SignalsTriggered int         `json:"signals_triggered" db:"signals_triggered"`
	AlertScore       float64     `json:"alert_score" db:"alert_score"`
	AlertLevel       AlertLevel  `json:"alert_level" db:"alert_level"`
	OptionsLabel     SignalLabel `json:"options_signal" db:"options_signal"`
	VolumeLabel      SignalLabel `json:"volume_signal" db:"volume_signal"`
	SocialLabel      SignalLabel `json:"social_signal" db:"social_signal"`
	MissingSignals   StringList  `json:"missing_signals,omitempty" db:"missing_signals"`
	SentimentScore   float64     `json:"sentiment_score" db:"sentiment_score"`
	NewsCount        int         `json:"news_count" db:"news_count"`
	CurrentPrice     float64     `json:"current_price" db:"current_price"`
	PriceChangePct   float64     `json:"price_change_pct" db:"price_change_pct"`
	Timestamp        time.Time   `json:"timestamp" db:"updated_at"`
}

// AlertView is one dashboard row. A nil Score means the ticker has never
// been scored, which is not the same as a score of 0.
type AlertView struct {
	Ticker     string       `json:"ticker"`
	Sector     string       `json:"sector,omitempty"`
	AlertScore *float64     `json:"alert_score"`
	AlertLevel *AlertLevel  `json:"alert_level"`
	Score      *SignalScore `json:"score"`
}

// NewAlertView builds a row for ticker; score may be nil.
func NewAlertView(ticker, sector string, score *SignalScore) AlertView {
	v := AlertView{Ticker: ticker, Sector: sector, Score: score}
	if score != nil {
		s, l := score.AlertScore, score.AlertLevel
		v.AlertScore, v.AlertLevel = &s, &l
	}
	return v
}
